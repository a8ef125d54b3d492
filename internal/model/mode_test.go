package model

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func TestDetectionModeVariant(t *testing.T) {
	cfg := PipelineConfig{Mode: FixedVocabulary, TargetClasses: []int{67, 0}, CustomLabels: []string{"passport"}}

	fixed, ok := cfg.DetectionMode().(FixedTargets)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, fixed.Kind(), test.ShouldEqual, FixedVocabulary)
	test.That(t, fixed.Contains(67), test.ShouldBeTrue)
	test.That(t, fixed.Contains(1), test.ShouldBeFalse)

	cfg.Mode = OpenVocabulary
	open, ok := cfg.DetectionMode().(OpenLabels)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, open.Labels, test.ShouldResemble, []string{"passport"})

	open.Labels[0] = "changed"
	test.That(t, cfg.CustomLabels[0], test.ShouldEqual, "passport")
}

func TestFrameInterval(t *testing.T) {
	test.That(t, PipelineConfig{FPS: 30}.FrameInterval(), test.ShouldEqual, 33333333*time.Nanosecond)
	test.That(t, PipelineConfig{FPS: 0}.FrameInterval(), test.ShouldEqual, time.Duration(0))
}

func TestCloneIsDeep(t *testing.T) {
	orig := PipelineConfig{TargetClasses: []int{67}, CustomLabels: []string{"id card"}}
	cp := orig.Clone()
	cp.TargetClasses[0] = 1
	cp.CustomLabels[0] = "x"
	test.That(t, orig.TargetClasses[0], test.ShouldEqual, 67)
	test.That(t, orig.CustomLabels[0], test.ShouldEqual, "id card")
}
