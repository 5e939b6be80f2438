package device

import "pillarpuller/protocol"

// Open drives the rig open until another command is received
func (d *Device) Open() error {
	return d.Send(protocol.CmdOpen, "")
}

// CloseRig drives the rig closed. Named to avoid clashing with Close,
// which closes the link.
func (d *Device) CloseRig() error {
	return d.Send(protocol.CmdClose, "")
}

// Stop stops the motor
func (d *Device) Stop() error {
	return d.Send(protocol.CmdStop, "")
}

// Home runs the homing sequence
func (d *Device) Home() error {
	return d.Send(protocol.CmdHome, "")
}

// Break opens the rig until a break is detected
func (d *Device) Break() error {
	return d.Send(protocol.CmdBreak, "")
}

// ZeroPosition sets the current platform position as zero
func (d *Device) ZeroPosition() error {
	return d.Send(protocol.CmdZeroPosition, "")
}

// MoveToPosition moves the platform to position (mm), passed through as typed
func (d *Device) MoveToPosition(position string) error {
	return d.Send(protocol.CmdMoveToPosition, position)
}

// MoveToForce moves until the load cell reads force
func (d *Device) MoveToForce(force string) error {
	return d.Send(protocol.CmdMoveToForce, force)
}
