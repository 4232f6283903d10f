// Package service provides the session façade for a PD Buddy Sink.
//
// SinkSession ties together the lower-level components:
//   - transport: one command line out, reply lines up to the prompt
//   - wire: command encoding and reply decoding
//   - model: configuration values and strict local validation
//   - pdo: source capabilities and power rules
//
// Every operation is one request-then-reply round trip (StageConfig is a
// short sequence of them), serialized by the session. The session never
// caches device state: each query returns what the device reports now.
//
// Example usage:
//
//	cfg := service.DefaultSessionConfig()
//	sess, err := service.Open(ctx, "/dev/ttyACM0", cfg)
//	if err != nil {
//		return err
//	}
//	defer sess.Close()
//
//	want := model.NewConfig(15000, 3000).WithFlags(model.FlagGiveBack)
//	if err := sess.StageConfig(ctx, want); err != nil {
//		return err
//	}
//	return sess.Commit(ctx)
//
// # Session States
//
// A session starts Connected. Each operation moves it to Busy for the
// duration of the exchange and back to Connected on any outcome, including
// timeouts and malformed replies. Close, or the device closing the port,
// moves it to Disconnected; operations then fail with ErrSessionClosed.
package service
