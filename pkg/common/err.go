package common

type Err string

func (e Err) Error() string { return string(e) }

const (
	OK             Err = "OK"
	ErrBadSlave    Err = "ErrBadSlave"
	ErrOutOfSync   Err = "ErrOutOfSync"
	ErrDisconnect  Err = "ErrDisconnect"
	ErrNoSlavePort Err = "missing slave_port"
)
