// Package transport implements the line transport to a PD Buddy Sink shell.
//
// The shell is a half-duplex, line oriented console on a USB CDC-ACM serial
// port:
//
//	host:   get_tmpcfg\r\n
//	device: get_tmpcfg\r\n          (echo)
//	        status: valid\r\n
//	        ...\r\n
//	        PDBS)                   (prompt, no line ending)
//
// LineTransport.Exchange writes one command line and reads until the
// accumulated output ends with the prompt, or the timeout elapses. It
// returns the reply lines between the echo and the prompt. Only one
// exchange is in flight at a time.
//
// # Port
//
// The byte channel is a Port: an io.ReadWriteCloser with a per-read timeout.
// A Read that returns (0, nil) means the read timeout elapsed without data;
// io.EOF means the channel is gone. go.bug.st/serial ports satisfy Port
// directly, see OpenSerial.
//
// # Errors
//
// Every failure is a *TransportError with kind Timeout, Closed or IOFailure.
// A timeout leaves the device in an unknown state: the command may or may not
// have run. Callers decide whether to Sync and retry.
package transport
