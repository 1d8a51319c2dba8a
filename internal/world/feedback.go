package world

import (
	"github.com/annel0/voxelmem/internal/vec"
)

// FeedbackKind определяет тип побочного эффекта изменения мира
type FeedbackKind uint8

const (
	FeedbackLeverClick        FeedbackKind = iota // Щелчок рычага
	FeedbackBlockActivate                         // Игровое событие "активирован"
	FeedbackBlockDeactivate                       // Игровое событие "деактивирован"
	FeedbackRegionRegenerated                     // Регион перестроен (свет, карты высот, переотправка клиентам)
)

var feedbackNames = [...]string{"LeverClick", "BlockActivate", "BlockDeactivate", "RegionRegenerated"}

// String возвращает имя типа события
func (k FeedbackKind) String() string {
	if int(k) < len(feedbackNames) {
		return feedbackNames[k]
	}
	return "Unknown"
}

// Feedback описывает один наблюдаемый побочный эффект: звук, игровое событие
// или перестройку региона. Движок только сообщает о нём, исполнение :
// забота подписчика.
type Feedback struct {
	Kind   FeedbackKind `json:"kind"`
	Pos    vec.Vec3     `json:"pos"`
	Region vec.Vec2     `json:"region"`
	Pitch  float32      `json:"pitch,omitempty"`
	Tick   uint64       `json:"tick"`
}

// FeedbackSink принимает побочные эффекты. Emit вызывается в горутине
// симуляции и не должен блокироваться.
type FeedbackSink interface {
	Emit(fb Feedback)
}

// FeedbackFunc адаптирует функцию к интерфейсу FeedbackSink
type FeedbackFunc func(fb Feedback)

// Emit вызывает f(fb)
func (f FeedbackFunc) Emit(fb Feedback) {
	f(fb)
}
