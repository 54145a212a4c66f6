/*
Package sieve runs one layer of a parallel prime sieve over bounded
channels. It exists to exercise channel.Channel with several producers and
consumers sharing the same two channels.

	generator --stage 0--> checker x N --stage 1--> counter

The generator emits the odd numbers below Plan.Limit and then one
Terminator per checker. Every checker is seeded with the same ascending
prime list; it drops multiples, forwards everything else, and passes on a
single Terminator when it receives one. The counter stops after N
terminators. With primes up to p, the survivors below (next prime)^2 are
exactly the odd primes.

Only a single layer is built. Extending the sieve with further layers of
checkers seeded from the survivors is not implemented.

	topo, _ := sieve.NewTopology(2, 64)
	pool, _ := workerpool.New(sieve.DefaultPlan().Tasks(), 8)
	res, err := sieve.Run(ctx, pool, topo, sieve.DefaultPlan())
*/
package sieve
