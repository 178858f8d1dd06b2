package components

import (
	"github.com/spaghettifunk/anima2d/engine/math"
)

const (
	/** @brief The name of the default camera. */
	DEFAULT_CAMERA_NAME string = "default"

	MinZoom float32 = 0.1
	MaxZoom float32 = 10.0
)

/**
 * @brief An orthographic camera for 2D scenes. World units map to pixels
 * at zoom 1, with the origin at the top-left of the viewport and Y pointing
 * down.
 */
type Camera2D struct {
	/**
	 * @brief The world position shown at the top-left of the viewport.
	 * NOTE: Do not set this directly, use SetPosition() instead
	 * so the view matrix is recalculated when needed.
	 */
	Position math.Vec3
	/** @brief The rotation around Z, in degrees. */
	Rotation float32
	/** @brief Magnification, 1 shows one world unit per pixel. */
	Zoom float32
	/** @brief Internal flag used to determine when the matrices need to be rebuilt. */
	IsDirty bool

	viewportWidth  float32
	viewportHeight float32

	viewMatrix           math.Mat4
	projectionMatrix     math.Mat4
	viewProjectionMatrix math.Mat4
}

func NewCamera2D(viewportWidth, viewportHeight uint32) *Camera2D {
	camera := &Camera2D{}
	camera.Reset()
	camera.SetViewportSize(viewportWidth, viewportHeight)
	return camera
}

func (c *Camera2D) Reset() {
	c.Position = math.NewVec3Zero()
	c.Rotation = 0
	c.Zoom = 1.0
	c.viewMatrix = math.NewMat4Identity()
	c.projectionMatrix = math.NewMat4Identity()
	c.viewProjectionMatrix = math.NewMat4Identity()
	c.IsDirty = true
}

func (c *Camera2D) GetPosition() math.Vec3 {
	return c.Position
}

func (c *Camera2D) SetPosition(position math.Vec3) {
	c.Position = position
	c.IsDirty = true
}

func (c *Camera2D) SetRotation(degrees float32) {
	c.Rotation = degrees
	c.IsDirty = true
}

func (c *Camera2D) SetZoom(zoom float32) {
	c.Zoom = math.Clamp(zoom, MinZoom, MaxZoom)
	c.IsDirty = true
}

func (c *Camera2D) ZoomBy(amount float32) {
	c.SetZoom(c.Zoom + amount)
}

// SetViewportSize is called whenever the framebuffer is resized. A zero
// size keeps the previous projection.
func (c *Camera2D) SetViewportSize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	c.viewportWidth = float32(width)
	c.viewportHeight = float32(height)
	c.IsDirty = true
}

func (c *Camera2D) ViewportSize() (float32, float32) {
	return c.viewportWidth, c.viewportHeight
}

func (c *Camera2D) recalculate() {
	rotation := math.NewMat4RotationZDegrees(c.Rotation)
	translation := math.NewMat4Translation(c.Position)

	c.viewMatrix = rotation.Mul(translation)
	c.viewMatrix = c.viewMatrix.Inverse()

	c.projectionMatrix = math.NewMat4Orthographic(0, c.viewportWidth/c.Zoom, c.viewportHeight/c.Zoom, 0, -1.0, 1.0)
	c.viewProjectionMatrix = c.viewMatrix.Mul(c.projectionMatrix)
	c.IsDirty = false
}

func (c *Camera2D) GetView() math.Mat4 {
	if c.IsDirty {
		c.recalculate()
	}
	return c.viewMatrix
}

func (c *Camera2D) GetProjection() math.Mat4 {
	if c.IsDirty {
		c.recalculate()
	}
	return c.projectionMatrix
}

/** @brief The matrix handed to Renderer2D.BeginFrame. */
func (c *Camera2D) ViewProjection() math.Mat4 {
	if c.IsDirty {
		c.recalculate()
	}
	return c.viewProjectionMatrix
}

/** @brief A pixel-space projection for overlays, unaffected by position and zoom. */
func (c *Camera2D) ScreenProjection() math.Mat4 {
	return math.NewMat4Orthographic(0, c.viewportWidth, c.viewportHeight, 0, -1.0, 1.0)
}

/** @brief Converts a viewport pixel to world space. */
func (c *Camera2D) ScreenToWorld(screen math.Vec2) math.Vec3 {
	ndc := math.NewVec3(screen.X/c.viewportWidth*2-1, 1-screen.Y/c.viewportHeight*2, 0)
	return ndc.Transform(c.ViewProjection().Inverse())
}

func (c *Camera2D) MoveLeft(amount float32) {
	c.Position.X -= amount / c.Zoom
	c.IsDirty = true
}

func (c *Camera2D) MoveRight(amount float32) {
	c.Position.X += amount / c.Zoom
	c.IsDirty = true
}

// MoveUp pans towards the top of the screen, where Y decreases.
func (c *Camera2D) MoveUp(amount float32) {
	c.Position.Y -= amount / c.Zoom
	c.IsDirty = true
}

func (c *Camera2D) MoveDown(amount float32) {
	c.Position.Y += amount / c.Zoom
	c.IsDirty = true
}
