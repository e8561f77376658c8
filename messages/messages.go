// Package messages defines the messages exchanged between activities.
//
// Messages are fixed layout value types with a bounded encoded size. The encoding is
// little-endian with unsigned counters as 8 byte integers and distances as IEEE 754
// doubles, in field declaration order.
package messages

import (
	"encoding/binary"
	"math"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"

	"github.com/corverroos/addemo"
)

// ErrInvalidSize indicates a buffer that does not match the fixed encoded size of a message.
var ErrInvalidSize = errors.New("invalid message size", j.C("ERR_0c5a2f9e7b4d1e38"))

const (
	// CameraImageSize is the encoded size of a CameraImage.
	CameraImageSize = 3 * 8

	// SceneSize is the encoded size of a Scene.
	SceneSize = 5 * 8
)

// CameraImage is a fake camera frame with the number of detected people and cars,
// and the distance to the closest obstacle.
type CameraImage struct {
	NumPeople        uint64  `json:"num_people"`
	NumCars          uint64  `json:"num_cars"`
	ObstacleDistance float64 `json:"obstacle_distance"`
}

func (CameraImage) MessageType() addemo.MessageType {
	return addemo.MessageType{Name: "CameraImage", MaxSize: CameraImageSize}
}

func (m CameraImage) MarshalBinary() ([]byte, error) {
	b := make([]byte, CameraImageSize)
	binary.LittleEndian.PutUint64(b[0:], m.NumPeople)
	binary.LittleEndian.PutUint64(b[8:], m.NumCars)
	binary.LittleEndian.PutUint64(b[16:], math.Float64bits(m.ObstacleDistance))
	return b, nil
}

func (m *CameraImage) UnmarshalBinary(b []byte) error {
	if len(b) != CameraImageSize {
		return errors.Wrap(ErrInvalidSize, "camera image", j.KV("size", len(b)))
	}
	m.NumPeople = binary.LittleEndian.Uint64(b[0:])
	m.NumCars = binary.LittleEndian.Uint64(b[8:])
	m.ObstacleDistance = math.Float64frombits(binary.LittleEndian.Uint64(b[16:]))
	return nil
}

// Scene is a fake inferred scene. The detection fields are a copy of the
// CameraImage the scene was inferred from.
type Scene struct {
	NumPeople         uint64  `json:"num_people"`
	NumCars           uint64  `json:"num_cars"`
	ObstacleDistance  float64 `json:"obstacle_distance"`
	DistanceLeftLane  float64 `json:"distance_left_lane"`
	DistanceRightLane float64 `json:"distance_right_lane"`
}

func (Scene) MessageType() addemo.MessageType {
	return addemo.MessageType{Name: "Scene", MaxSize: SceneSize}
}

func (m Scene) MarshalBinary() ([]byte, error) {
	b := make([]byte, SceneSize)
	binary.LittleEndian.PutUint64(b[0:], m.NumPeople)
	binary.LittleEndian.PutUint64(b[8:], m.NumCars)
	binary.LittleEndian.PutUint64(b[16:], math.Float64bits(m.ObstacleDistance))
	binary.LittleEndian.PutUint64(b[24:], math.Float64bits(m.DistanceLeftLane))
	binary.LittleEndian.PutUint64(b[32:], math.Float64bits(m.DistanceRightLane))
	return b, nil
}

func (m *Scene) UnmarshalBinary(b []byte) error {
	if len(b) != SceneSize {
		return errors.Wrap(ErrInvalidSize, "scene", j.KV("size", len(b)))
	}
	m.NumPeople = binary.LittleEndian.Uint64(b[0:])
	m.NumCars = binary.LittleEndian.Uint64(b[8:])
	m.ObstacleDistance = math.Float64frombits(binary.LittleEndian.Uint64(b[16:]))
	m.DistanceLeftLane = math.Float64frombits(binary.LittleEndian.Uint64(b[24:]))
	m.DistanceRightLane = math.Float64frombits(binary.LittleEndian.Uint64(b[32:]))
	return nil
}

// SceneFrom returns a scene copying the detection fields of the image.
func SceneFrom(img CameraImage, left, right float64) Scene {
	return Scene{
		NumPeople:         img.NumPeople,
		NumCars:           img.NumCars,
		ObstacleDistance:  img.ObstacleDistance,
		DistanceLeftLane:  left,
		DistanceRightLane: right,
	}
}
