package math

import "testing"

func TestQuadTransformCorners(t *testing.T) {
	tests := []struct {
		name     string
		position Vec3
		size     Vec2
		rotation float32
		want     [4]Vec3
	}{
		{
			name:     "unit",
			position: NewVec3Zero(),
			size:     NewVec2One(),
			want:     [4]Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		},
		{
			name:     "scaled and moved",
			position: NewVec3(5, -3, 0.5),
			size:     NewVec2(4, 2),
			want:     [4]Vec3{{5, -3, 0.5}, {9, -3, 0.5}, {9, -1, 0.5}, {5, -1, 0.5}},
		},
		{
			name:     "rotated 90 degrees",
			position: NewVec3(10, 10, 0),
			size:     NewVec2(2, 2),
			rotation: 90,
			want:     [4]Vec3{{10, 10, 0}, {10, 12, 0}, {8, 12, 0}, {8, 10, 0}},
		},
		{
			name:     "rotated -270 degrees",
			position: NewVec3(10, 10, 0),
			size:     NewVec2(2, 2),
			rotation: -270,
			want:     [4]Vec3{{10, 10, 0}, {10, 12, 0}, {8, 12, 0}, {8, 10, 0}},
		},
		{
			name:     "rotated 180 degrees",
			position: NewVec3(1, 1, 0),
			size:     NewVec2(1, 1),
			rotation: 180,
			want:     [4]Vec3{{1, 1, 0}, {0, 1, 0}, {0, 0, 0}, {1, 0, 0}},
		},
	}

	corners := [4]Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := QuadTransform(tt.position, tt.size, tt.rotation)
			for i, c := range corners {
				got := c.Transform(model)
				if got != tt.want[i] {
					t.Errorf("corner %d: expected %v, got %v", i, tt.want[i], got)
				}
			}
		})
	}
}

func TestQuadTransformArbitraryAngle(t *testing.T) {
	model := QuadTransform(NewVec3Zero(), NewVec2One(), 45)
	got := Vec3{1, 0, 0}.Transform(model)
	want := Vec3{0.70710677, 0.70710677, 0}
	if !got.Compare(want, 1e-6) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestSinCosDegrees(t *testing.T) {
	tests := []struct {
		deg  float32
		s, c float32
	}{
		{0, 0, 1},
		{90, 1, 0},
		{180, 0, -1},
		{270, -1, 0},
		{360, 0, 1},
		{-90, -1, 0},
		{450, 1, 0},
	}
	for _, tt := range tests {
		s, c := SinCosDegrees(tt.deg)
		if s != tt.s || c != tt.c {
			t.Errorf("%v degrees: expected (%v, %v), got (%v, %v)", tt.deg, tt.s, tt.c, s, c)
		}
	}
}

func TestMat4InverseRoundTrip(t *testing.T) {
	m := QuadTransform(NewVec3(3, 4, 0), NewVec2(2, 5), 30)
	product := m.Mul(m.Inverse())
	identity := NewMat4Identity()
	for i := range product.Data {
		if kabs(product.Data[i]-identity.Data[i]) > 1e-5 {
			t.Fatalf("element %d: expected %v, got %v", i, identity.Data[i], product.Data[i])
		}
	}
}

func TestOrthographicScreenSpace(t *testing.T) {
	proj := NewMat4Orthographic(0, 800, 600, 0, -1, 1)

	topLeft := Vec4{0, 0, 0, 1}.Transform(proj)
	if !topLeft.Compare(Vec4{-1, 1, 0, 1}, 1e-6) {
		t.Errorf("expected top-left at (-1, 1), got %v", topLeft)
	}
	bottomRight := Vec4{800, 600, 0, 1}.Transform(proj)
	if !bottomRight.Compare(Vec4{1, -1, 0, 1}, 1e-6) {
		t.Errorf("expected bottom-right at (1, -1), got %v", bottomRight)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(5, 0, 3); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if got := Clamp(float32(-1.5), 0, 1); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
	if got := Clamp(0.25, 0, 1); got != 0.25 {
		t.Errorf("expected 0.25, got %v", got)
	}
}
