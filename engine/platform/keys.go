package platform

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/anima2d/engine/core"
)

var specialKeys = map[glfw.Key]core.KeyCode{
	glfw.KeyBackspace:  core.KEY_BACKSPACE,
	glfw.KeyTab:        core.KEY_TAB,
	glfw.KeyEnter:      core.KEY_ENTER,
	glfw.KeyKPEnter:    core.KEY_ENTER,
	glfw.KeyEscape:     core.KEY_ESCAPE,
	glfw.KeyLeft:       core.KEY_LEFT,
	glfw.KeyUp:         core.KEY_UP,
	glfw.KeyRight:      core.KEY_RIGHT,
	glfw.KeyDown:       core.KEY_DOWN,
	glfw.KeyF1:         core.KEY_F1,
	glfw.KeyF2:         core.KEY_F2,
	glfw.KeyEqual:      core.KEY_PLUS,
	glfw.KeyKPAdd:      core.KEY_PLUS,
	glfw.KeyMinus:      core.KEY_MINUS,
	glfw.KeyKPSubtract: core.KEY_MINUS,
}

// translateKey maps a glfw key to the engine key code. Letters, digits and
// space share their ASCII value.
func translateKey(key glfw.Key) (core.KeyCode, bool) {
	if code, ok := specialKeys[key]; ok {
		return code, true
	}
	switch {
	case key == glfw.KeySpace,
		key >= glfw.Key0 && key <= glfw.Key9,
		key >= glfw.KeyA && key <= glfw.KeyZ:
		return core.KeyCode(key), true
	}
	return 0, false
}
