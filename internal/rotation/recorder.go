package rotation

import "github.com/go-gl/mathgl/mgl64"

// TickResult describes one UpdateRotation call.
type TickResult struct {
	Tick         uint64     `json:"tick"`
	DeltaTime    float64    `json:"delta_time"`
	Mode         Mode       `json:"-"`
	ModeName     string     `json:"mode"`
	PreviousMode Mode       `json:"-"`
	YawBefore    float64    `json:"yaw_before"`
	YawAfter     float64    `json:"yaw_after"`
	TargetYaw    float64    `json:"target_yaw"`
	Frozen       bool       `json:"frozen"`
	Overridden   bool       `json:"overridden"`
	Additive     bool       `json:"additive"`
	Rotation     mgl64.Quat `json:"rotation"`
}

// ModeChanged reports whether the tick transitioned modes.
func (r TickResult) ModeChanged() bool {
	return r.Mode != r.PreviousMode
}

// Recorder receives every tick result after the host transform is written.
type Recorder interface {
	RecordTick(result TickResult)
}

// Recorders fans a tick result out to several recorders.
type Recorders []Recorder

func (rs Recorders) RecordTick(result TickResult) {
	for _, r := range rs {
		if r != nil {
			r.RecordTick(result)
		}
	}
}
