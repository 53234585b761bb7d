package imu

import "time"

// IMURaw represents a single raw IMU+mag sample, as published by the
// inertial producers.
type IMURaw struct {
	Source string    `json:"source"`         // "left", "right", "sim"
	Time   time.Time `json:"time,omitempty"` // sample time; receive time is used when zero

	Ax int16 `json:"ax"` // accel
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`

	Mx int16 `json:"mx"` // magnetometer
	My int16 `json:"my"`
	Mz int16 `json:"mz"`
}

type IMURawSource interface {
	NextRaw() (IMURaw, error)
}
