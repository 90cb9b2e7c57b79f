// ABOUTME: Frame encoding package
// ABOUTME: Wire formats for serial and datagram transports
// Package encode serializes telemetry frames for a transport.
//
// Two encodings are provided:
//
//   - Text: "<roll,pitch,yaw,throttle>\n" ASCII lines for a serial
//     microcontroller, e.g. "<1500,1500,1500,1000>\n".
//   - Binary: a fixed number of native-order int32 values, one datagram
//     per frame, no header or version field.
//
// Both follow a telemetry.Layout exactly: no channel is reordered or
// dropped. Values are truncated toward zero.
//
// Example:
//
//	enc := encode.NewBinary(telemetry.DatagramLayout)
//	buf = enc.Append(buf[:0], frame)
package encode
