// Package analysis combines integrity status, wind, and hotspot
// context into the causal judgment shown in the alert message.
package analysis

import (
	"fmt"

	"github.com/srwpaibong/PM25-alert-system/internal/models"
)

// Kind identifies which rule produced the verdict. The numeric order
// mirrors rule precedence.
type Kind int

const (
	KindDataSpike Kind = iota
	KindDataMissing
	KindStagnantBurning
	KindTransportedSmoke
	KindStagnantNoFire
	KindUnexplained
)

// DenseHotspotCount is the upwind hotspot count above which burning is
// considered widespread.
const DenseHotspotCount = 5

type Input struct {
	PM25         float64
	WindSpeedKmh *float64
	WindLabel    string
	Hotspots     *models.HotspotSummary
	Integrity    models.IntegrityResult
	CalmWindKmh  float64
}

type Assessment struct {
	Kind Kind
	Text string
}

// Assess applies the causal rules in fixed precedence order. Data
// quality problems suppress causal interpretation entirely; only then
// are wind and hotspot factors combined.
func Assess(in Input) Assessment {
	if in.Integrity.Has(models.IntegritySpike) {
		return Assessment{
			Kind: KindDataSpike,
			Text: "⚠️ ข้อมูลมีลักษณะพุ่งผิดปกติ อาจเป็นความผิดพลาดของเซนเซอร์ ควรตรวจสอบก่อนตีความ",
		}
	}
	if in.Integrity.Has(models.IntegrityMissing) {
		return Assessment{
			Kind: KindDataMissing,
			Text: "⚠️ ข้อมูลย้อนหลังขาดหายมาก ความน่าเชื่อถือของค่าปัจจุบันลดลง",
		}
	}

	calm := in.WindSpeedKmh != nil && *in.WindSpeedKmh < in.CalmWindKmh

	upwind := 0
	if in.Hotspots != nil && in.Hotspots.UpwindKnown {
		upwind = in.Hotspots.UpwindCount
	}

	switch {
	case calm && upwind > DenseHotspotCount:
		return Assessment{
			Kind: KindStagnantBurning,
			Text: fmt.Sprintf("🔥 ยืนยันสถานการณ์จริง: ลมสงบและพบจุดความร้อนเหนือลม %d จุด อากาศปิดบวกการเผาในพื้นที่", upwind),
		}
	case upwind > 0:
		return Assessment{
			Kind: KindTransportedSmoke,
			Text: fmt.Sprintf("🔥 ยืนยันสถานการณ์จริง: ควันพัดมาจากทิศ%s (จุดความร้อนเหนือลม %d จุด)", in.WindLabel, upwind),
		}
	case calm:
		return Assessment{
			Kind: KindStagnantNoFire,
			Text: "🟡 เฝ้าระวัง: ไม่พบการเผาใกล้เคียง ค่าฝุ่นสูงจากอากาศปิด หรือหมอกควันข้ามแดน",
		}
	default:
		return Assessment{
			Kind: KindUnexplained,
			Text: "🟡 เฝ้าระวัง: ค่าฝุ่นสูงโดยไม่พบปัจจัยแวดล้อมชัดเจน ควรตรวจสอบแหล่งกำเนิดเฉพาะจุด",
		}
	}
}
