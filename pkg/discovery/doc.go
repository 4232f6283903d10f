// Package discovery finds PD Buddy Sinks attached over USB.
//
// A sink enumerates as a CDC-ACM serial port with the pid.codes vendor ID
// 0x1209 and product ID 0x9DB5. Find lists the serial ports of the host and
// keeps those whose USB IDs match; the serial number tells several sinks
// apart.
package discovery
