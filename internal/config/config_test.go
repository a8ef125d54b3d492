package config

import (
	"testing"

	"go.viam.com/test"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CAMERA_INDEX", "")
	t.Setenv("MODEL_DIR", "")
	t.Setenv("PREVIEW_WINDOW", "")

	cfg := Load()
	test.That(t, cfg.CameraIndex, test.ShouldEqual, 0)
	test.That(t, cfg.VirtualDevice, test.ShouldEqual, "/dev/video10")
	test.That(t, cfg.FixedModel, test.ShouldEqual, "models/yolov8n.onnx")
	test.That(t, cfg.ControlAddr, test.ShouldEqual, "127.0.0.1:8765")
	test.That(t, cfg.PreviewWindow, test.ShouldBeTrue)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CAMERA_INDEX", "2")
	t.Setenv("MODEL_DIR", "/opt/weights")
	t.Setenv("PREVIEW_WINDOW", "false")
	t.Setenv("LOG_DEBUG", "1")

	cfg := Load()
	test.That(t, cfg.CameraIndex, test.ShouldEqual, 2)
	test.That(t, cfg.OpenModel, test.ShouldEqual, "/opt/weights/yolov8s-worldv2.onnx")
	test.That(t, cfg.PreviewWindow, test.ShouldBeFalse)
	test.That(t, cfg.Debug, test.ShouldBeTrue)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CAMERA_INDEX", "front")
	t.Setenv("AUTOSTART", "maybe")

	cfg := Load()
	test.That(t, cfg.CameraIndex, test.ShouldEqual, 0)
	test.That(t, cfg.Autostart, test.ShouldBeTrue)
}
