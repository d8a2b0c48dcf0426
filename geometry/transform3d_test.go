package geometry

import (
	"math"
	"math/rand"
	"testing"
)

func checkTransform(t *testing.T, got, want Transform3d) {
	t.Helper()
	if !got.ApproxEqual(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestTransform3dBetweenIdenticalPoses(t *testing.T) {
	p := NewPose3d(NewTranslation3d(1, 2, 3), NewRotation3dFromEuler(0.1, 0.2, 0.3))
	checkTransform(t, NewTransform3dBetween(p, p), Transform3d{})
	checkTransform(t, NewTransform3dBetween(Pose3d{}, Pose3d{}), Transform3d{})
}

func TestTransform3dPlus(t *testing.T) {
	yaw90 := NewRotation3dFromEuler(0, 0, math.Pi/2)
	forward := NewTransform3d(NewTranslation3d(1, 0, 0), Rotation3d{})
	turn := NewTransform3d(Translation3d{}, yaw90)

	// Drive forward then turn in place.
	got := forward.Plus(turn)
	checkTransform(t, got, NewTransform3d(NewTranslation3d(1, 0, 0), yaw90))

	// Turn first and the forward leg points along +y instead.
	got = turn.Plus(forward)
	checkTransform(t, got, NewTransform3d(NewTranslation3d(0, 1, 0), yaw90))
}

func TestTransform3dPlusAssociative(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		a := randomTransform(rng)
		b := randomTransform(rng)
		c := randomTransform(rng)
		checkTransform(t, a.Plus(b).Plus(c), a.Plus(b.Plus(c)))
	}
}

func TestTransform3dInverse(t *testing.T) {
	yaw90 := NewRotation3dFromEuler(0, 0, math.Pi/2)
	tf := NewTransform3d(NewTranslation3d(1, 0, 0), yaw90)

	inv := tf.Inverse()
	checkTransform(t, tf.Plus(inv), Transform3d{})
	checkTransform(t, inv.Plus(tf), Transform3d{})

	// Applying a transform and its inverse returns to the start pose.
	p := NewPose3d(NewTranslation3d(3, -2, 1), NewRotation3dFromEuler(0.5, -0.25, 1.5))
	checkPose(t, p.TransformBy(tf).TransformBy(inv), p)
}

func TestTransform3dInverseRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 20; i++ {
		tf := randomTransform(rng)
		checkTransform(t, tf.Plus(tf.Inverse()), Transform3d{})
	}
}

func TestTransform3dRecoversPoseDelta(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 20; i++ {
		initial := randomPose(rng)
		final := randomPose(rng)

		tf := NewTransform3dBetween(initial, final)
		checkPose(t, initial.TransformBy(tf), final)

		// Pose3d.Minus agrees with the two-pose constructor.
		checkTransform(t, final.Minus(initial), tf)
	}
}
