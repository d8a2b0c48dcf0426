package geometry

import (
	"encoding/json"
	"math"
	"testing"
)

func TestTranslation3dJSON(t *testing.T) {
	b, err := json.Marshal(NewTranslation3d(1, 2, 3))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), `{"x":1,"y":2,"z":3}`; got != want {
		t.Errorf("marshal = %s, want %s", got, want)
	}

	var tr Translation3d
	if err := json.Unmarshal(b, &tr); err != nil {
		t.Fatal(err)
	}
	checkTranslation(t, tr, NewTranslation3d(1, 2, 3))
}

func TestQuaternionJSON(t *testing.T) {
	b, err := json.Marshal(IdentityQuaternion())
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), `{"w":1,"x":0,"y":0,"z":0}`; got != want {
		t.Errorf("marshal = %s, want %s", got, want)
	}

	var q Quaternion
	if err := json.Unmarshal([]byte(`{"w":0.5,"x":-0.5,"y":0.5,"z":-0.5}`), &q); err != nil {
		t.Fatal(err)
	}
	checkQuaternion(t, q, Quaternion{W: 0.5, X: -0.5, Y: 0.5, Z: -0.5})
}

func TestRotation3dJSON(t *testing.T) {
	b, err := json.Marshal(Rotation3d{})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(b), `{"quaternion":{"w":1,"x":0,"y":0,"z":0}}`; got != want {
		t.Errorf("marshal = %s, want %s", got, want)
	}

	r := NewRotation3dFromEuler(0.25, -0.5, 1.25)
	b, err = json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	var back Rotation3d
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !back.ApproxEqual(r) {
		t.Errorf("round trip = %v, want %v", back, r)
	}
}

func TestRotation3dJSONNormalizesInput(t *testing.T) {
	var r Rotation3d
	if err := json.Unmarshal([]byte(`{"quaternion":{"w":2,"x":0,"y":0,"z":0}}`), &r); err != nil {
		t.Fatal(err)
	}
	checkQuaternion(t, r.Quaternion(), IdentityQuaternion())

	// A missing quaternion decodes as the identity rotation.
	if err := json.Unmarshal([]byte(`{}`), &r); err != nil {
		t.Fatal(err)
	}
	checkQuaternion(t, r.Quaternion(), IdentityQuaternion())
}

func TestPose3dJSON(t *testing.T) {
	p := NewPose3d(NewTranslation3d(1, 2, 3), Rotation3d{})
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"translation":{"x":1,"y":2,"z":3},"rotation":{"quaternion":{"w":1,"x":0,"y":0,"z":0}}}`
	if got := string(b); got != want {
		t.Errorf("marshal = %s, want %s", got, want)
	}

	p = NewPose3d(NewTranslation3d(-4, 0.5, 2), NewRotation3dFromEuler(0, 0, math.Pi/2))
	b, err = json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	var back Pose3d
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	checkPose(t, back, p)
}

func TestTransform3dJSON(t *testing.T) {
	tf := NewTransform3d(NewTranslation3d(1, 0, 0), NewRotation3dFromEuler(0, 0, math.Pi/2))
	b, err := json.Marshal(tf)
	if err != nil {
		t.Fatal(err)
	}
	var back Transform3d
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	checkTransform(t, back, tf)
}
