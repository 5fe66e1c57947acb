package renderer

import (
	"go.uber.org/zap"

	"deferred-engine/internal/logger"
	"deferred-engine/settings"
)

const adjustStep = 0.05

func (r *Renderer) ToggleDebug() bool { return r.toggle(settings.DebugDeferredBuffers) }

func (r *Renderer) ToggleSSAO() bool { return r.toggle(settings.SSAOActive) }

func (r *Renderer) ToggleHDR() bool { return r.toggle(settings.HDRActive) }

// ToggleFullscreen flips the fullscreen request; the window applies it.
func (r *Renderer) ToggleFullscreen() bool { return r.toggle(settings.WantsFullscreen) }

func (r *Renderer) toggle(key string) bool {
	v, err := r.settings.Toggle(key)
	if err != nil {
		logger.Log.Warn("toggle", zap.String("key", key), zap.Error(err))
		return false
	}
	logger.Log.Info("toggled", zap.String("key", key), zap.Bool("value", v))
	return v
}

func (r *Renderer) IncreaseExposure() { r.adjust(settings.HDRExposure, adjustStep, false) }

func (r *Renderer) DecreaseExposure() { r.adjust(settings.HDRExposure, -adjustStep, false) }

func (r *Renderer) IncreaseGamma() { r.adjust(settings.HDRGamma, adjustStep, true) }

// DecreaseGamma lowers gamma unless that would make it negative.
func (r *Renderer) DecreaseGamma() { r.adjust(settings.HDRGamma, -adjustStep, true) }

func (r *Renderer) adjust(key string, delta float32, nonNegative bool) {
	v, err := r.settings.Update(key, func(cur any) any {
		f, _ := cur.(float32)
		if next := f + delta; !nonNegative || next >= 0 {
			return next
		}
		return cur
	})
	if err != nil {
		logger.Log.Warn("adjust", zap.String("key", key), zap.Error(err))
		return
	}
	logger.Log.Debug("adjusted", zap.String("key", key), zap.Any("value", v))
}
