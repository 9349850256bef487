package session

import "time"

// ToastLevel classifies a notification.
type ToastLevel string

// Toast levels.
const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastError   ToastLevel = "error"
)

// Toast is a transient notification shown to the user.
type Toast struct {
	ID      int64
	Level   ToastLevel
	Message string
	At      time.Time
}

// toastList keeps the newest max toasts, oldest first.
type toastList struct {
	max    int
	nextID int64
	items  []Toast
}

func (l *toastList) add(level ToastLevel, msg string) Toast {
	l.nextID++
	t := Toast{ID: l.nextID, Level: level, Message: msg, At: time.Now()}
	l.items = append(l.items, t)
	if over := len(l.items) - l.max; l.max > 0 && over > 0 {
		l.items = append(l.items[:0:0], l.items[over:]...)
	}
	return t
}

func (l *toastList) remove(id int64) bool {
	for i, t := range l.items {
		if t.ID == id {
			l.items = append(l.items[:i:i], l.items[i+1:]...)
			return true
		}
	}
	return false
}

func (l *toastList) list() []Toast {
	out := make([]Toast, len(l.items))
	copy(out, l.items)
	return out
}
