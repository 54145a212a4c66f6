/*
Package streaming groups the components that move values between goroutines.

  - channel: bounded, blocking FIFO channel with a self-check of its
    circular-buffer invariants

Basic usage:

	ch, err := channel.New[int](16)
	if err != nil {
		return err
	}
	go func() { ch.Send(42) }()
	v := ch.Get()
*/
package streaming
