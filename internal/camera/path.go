// Package camera samples a 3D camera path whose points of interest are
// timeline regions, and exports it for offline rendering.
package camera

import (
	"fmt"
	"math"

	"github.com/therealutkarshpriyadarshi/scrolly/internal/timeline"
	"github.com/therealutkarshpriyadarshi/scrolly/pkg/models"
)

// Pose is a camera position and orientation
type Pose struct {
	Position   [3]float64 `yaml:"position"`
	Quaternion [4]float64 `yaml:"quaternion"`
}

// Keyframe is one point of interest on the path
type Keyframe struct {
	ID       string  `yaml:"id,omitempty"`
	Time     float64 `yaml:"time"`
	Pose     `yaml:",inline"`
	Duration float64 `yaml:"duration"`
	Ease     string  `yaml:"ease,omitempty"`
}

// Path is an ordered camera path
type Path struct {
	regions   []models.Region
	keyframes []Keyframe
	eases     []EaseFunc
}

// NewPath builds a path from points of interest in store order. Unknown
// ease names fall back to linear interpolation.
func NewPath(regions []models.Region) (*Path, error) {
	p := &Path{
		regions:   regions,
		keyframes: make([]Keyframe, 0, len(regions)),
		eases:     make([]EaseFunc, 0, len(regions)),
	}
	for i, r := range regions {
		cam, err := r.Camera()
		if err != nil {
			return nil, fmt.Errorf("failed to decode point of interest %d: %w", i, err)
		}
		fn, ok := Ease(cam.Ease)
		if !ok {
			fn = linear
		}
		p.keyframes = append(p.keyframes, Keyframe{
			ID:       string(r.ID),
			Time:     r.StartTime,
			Pose:     Pose{Position: cam.Position, Quaternion: normalize(cam.Quaternion)},
			Duration: cam.Duration,
			Ease:     cam.Ease,
		})
		p.eases = append(p.eases, fn)
	}
	return p, nil
}

// Len returns the number of points of interest
func (p *Path) Len() int {
	return len(p.keyframes)
}

// Keyframes returns a copy of the keyframes
func (p *Path) Keyframes() []Keyframe {
	return append([]Keyframe(nil), p.keyframes...)
}

// Duration returns the time at which the last transition has finished
func (p *Path) Duration() float64 {
	if len(p.keyframes) == 0 {
		return 0
	}
	last := p.keyframes[len(p.keyframes)-1]
	return last.Time + last.Duration
}

// Active returns the index of the point of interest reached at time t
func (p *Path) Active(t float64) (int, bool) {
	i := timeline.ResolveIndex(p.regions, t, 0)
	return i, i >= 0
}

// Sample returns the camera pose at time t. Before the first point of
// interest the first pose is held, after the last the last one is. Between
// two points the pose moves toward the next one using its ease.
func (p *Path) Sample(t float64) Pose {
	if len(p.keyframes) == 0 {
		return Pose{Quaternion: [4]float64{0, 0, 0, 1}}
	}

	i, ok := p.Active(t)
	if !ok {
		return p.keyframes[0].Pose
	}
	if i == len(p.keyframes)-1 {
		return p.keyframes[i].Pose
	}

	prev, next := p.keyframes[i], p.keyframes[i+1]
	span := next.Time - prev.Time
	if span <= 0 {
		return next.Pose
	}
	k := p.eases[i+1](timeline.Clamp((t-prev.Time)/span, 0, 1))

	var pose Pose
	for a := 0; a < 3; a++ {
		pose.Position[a] = lerp(prev.Position[a], next.Position[a], k)
	}
	pose.Quaternion = slerp(prev.Quaternion, next.Quaternion, k)
	return pose
}

// slerp interpolates unit quaternions along the shorter arc
func slerp(a, b [4]float64, t float64) [4]float64 {
	dot := a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
	if dot < 0 {
		for i := range b {
			b[i] = -b[i]
		}
		dot = -dot
	}

	var out [4]float64
	if dot > 0.9995 {
		for i := range out {
			out[i] = lerp(a[i], b[i], t)
		}
		return normalize(out)
	}

	theta := math.Acos(dot)
	sin := math.Sin(theta)
	wa := math.Sin((1-t)*theta) / sin
	wb := math.Sin(t*theta) / sin
	for i := range out {
		out[i] = wa*a[i] + wb*b[i]
	}
	return out
}

func normalize(q [4]float64) [4]float64 {
	n := math.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if n == 0 {
		return [4]float64{0, 0, 0, 1}
	}
	for i := range q {
		q[i] /= n
	}
	return q
}
