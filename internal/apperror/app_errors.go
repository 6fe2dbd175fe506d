package apperror

import "errors"

var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrChannelNotOpen   = errors.New("channel is not open")
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")

	ErrRoomCodeExhausted = errors.New("could not find a free room code")
)
