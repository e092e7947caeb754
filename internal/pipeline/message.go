package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/srwpaibong/PM25-alert-system/internal/models"
	"github.com/srwpaibong/PM25-alert-system/internal/weather"
)

// ComposeMessage renders the outbound alert text for the new stations,
// worst first.
func ComposeMessage(alerts []models.StationAlert, now time.Time) string {
	SortByPM25Desc(alerts)

	var b strings.Builder
	fmt.Fprintf(&b, "🚨 แจ้งเตือน PM2.5 ระดับสีแดง %d สถานี\n", len(alerts))
	fmt.Fprintf(&b, "เวลา %s น.\n", now.Format("02/01/2006 15:04"))

	for _, a := range alerts {
		b.WriteString("\n")
		writeStation(&b, a)
	}

	b.WriteString("\nขอให้หลีกเลี่ยงกิจกรรมกลางแจ้งและสวมหน้ากาก N95")
	return b.String()
}

func writeStation(b *strings.Builder, a models.StationAlert) {
	fmt.Fprintf(b, "📍 %s (%s) จ.%s\n", a.Reading.NameTH, a.Reading.StationID, a.Reading.Province)
	fmt.Fprintf(b, "PM2.5: %.1f µg/m³\n", a.Reading.PM25)

	if a.Integrity.HasRange {
		fmt.Fprintf(b, "ช่วงค่าย้อนหลัง: %.0f–%.0f µg/m³ | ข้อมูล: %s\n", a.Integrity.Min, a.Integrity.Max, a.Integrity.Status)
	} else {
		fmt.Fprintf(b, "ข้อมูล: %s\n", a.Integrity.Status)
	}

	b.WriteString(windLine(a.Weather))
	b.WriteString(hotspotLine(a.Hotspots))
	fmt.Fprintf(b, "%s\n", a.Verdict)
}

func windLine(w models.WeatherObservation) string {
	if w.Source == weather.SourceNotFound || w.WindBearing == nil {
		return "ลม: ไม่มีข้อมูล\n"
	}

	speed := "ไม่ทราบความเร็ว"
	if w.WindSpeedKmh != nil {
		speed = fmt.Sprintf("%.1f กม./ชม.", *w.WindSpeedKmh)
	}
	return fmt.Sprintf("ลม: %s จากทิศ%s (%s)\n", speed, w.WindDirection, w.Source)
}

func hotspotLine(h *models.HotspotSummary) string {
	if h == nil {
		return "จุดความร้อน: ไม่มีข้อมูลดาวเทียม\n"
	}

	count, scope := h.ReportedCount()
	if count == 0 {
		return fmt.Sprintf("จุดความร้อน: ไม่พบในรัศมี %.0f กม.\n", h.RadiusKm)
	}

	line := fmt.Sprintf("จุดความร้อน: %d จุด (%s)", count, scope)
	if h.DominantLandUse != "" {
		line += fmt.Sprintf(" ส่วนใหญ่%s", h.DominantLandUse)
	}
	if h.HasNearest {
		line += fmt.Sprintf(" ใกล้สุด %.0f กม. ทิศ%s", h.NearestKm, h.NearestDirection)
	}
	return line + "\n"
}
