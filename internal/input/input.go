// Package input описывает привязки управления и edge-детекцию нажатий.
//
// Привязка — закрытый размеченный вариант (клавиша либо кнопка геймпада),
// который резолвится единственным полиморфным запросом IsActive и никогда
// не разбирается по форме. "Только что нажато" — явное состояние на каждую
// логическую линию ввода: храним значение предыдущего кадра и сравниваем.
package input

// Device — снимок состояния устройства ввода за кадр.
type Device interface {
	// KeyPressed возвращает true, если клавиша с данным именем зажата.
	KeyPressed(key string) bool
	// ButtonPressed возвращает true, если кнопка геймпада зажата.
	ButtonPressed(button int) bool
}

// Binding — источник ввода для одного игрового действия.
type Binding interface {
	// IsActive возвращает true, если действие активно на данном устройстве.
	IsActive(dev Device) bool
}

// KeyBinding — привязка действия к клавише клавиатуры.
type KeyBinding struct {
	Key string
}

// IsActive реализует Binding.
func (b KeyBinding) IsActive(dev Device) bool {
	return dev.KeyPressed(b.Key)
}

// GamepadBinding — привязка действия к кнопке геймпада.
type GamepadBinding struct {
	Button int
}

// IsActive реализует Binding.
func (b GamepadBinding) IsActive(dev Device) bool {
	return dev.ButtonPressed(b.Button)
}

// Line — состояние одной логической линии ввода с edge-детекцией.
type Line struct {
	active    bool
	wasActive bool
}

// Update фиксирует уровень линии за текущий кадр. Вызывается строго один
// раз за тик.
func (l *Line) Update(active bool) {
	l.wasActive = l.active
	l.active = active
}

// Active возвращает уровень линии в текущем кадре.
func (l *Line) Active() bool {
	return l.active
}

// JustPressed возвращает true только в том кадре, в котором линия перешла
// из отпущенного состояния в нажатое.
func (l *Line) JustPressed() bool {
	return l.active && !l.wasActive
}

// JustReleased возвращает true только в кадре отпускания.
func (l *Line) JustReleased() bool {
	return !l.active && l.wasActive
}
