package sieve

import (
	"github.com/vnykmshr/boundchan/pkg/streaming/channel"
)

// Candidate is a number travelling through the sieve.
type Candidate int64

// Terminator marks the end of a stream. Each consumer of a stream takes
// exactly one.
const Terminator Candidate = 0

// Generate sends the odd candidates 3, 5, ... below limit, followed by
// terminators Terminator values, one per downstream consumer.
func Generate(limit Candidate, terminators int, out channel.Sender[Candidate]) {
	for c := Candidate(3); c < limit; c += 2 {
		out.Send(c)
	}
	for i := 0; i < terminators; i++ {
		out.Send(Terminator)
	}
}

// Check reads candidates from in until it receives a Terminator, then
// sends one Terminator to out and returns.
//
// primes must be ascending. For each candidate c the first prime p with
// p*p > c settles c as prime and it is forwarded; the first p dividing c
// settles it as composite and it is dropped. A candidate neither prime
// settles is forwarded for a later layer to decide.
func Check(primes []Candidate, in channel.Receiver[Candidate], out channel.Sender[Candidate]) {
	for {
		c := in.Get()
		if c == Terminator {
			break
		}
		if survives(primes, c) {
			out.Send(c)
		}
	}
	out.Send(Terminator)
}

func survives(primes []Candidate, c Candidate) bool {
	for _, p := range primes {
		if p*p > c {
			return true
		}
		if c%p == 0 {
			return false
		}
	}
	return true
}

// Count reads from in until it has seen terminators Terminator values and
// returns how many other candidates arrived.
func Count(in channel.Receiver[Candidate], terminators int) int {
	count := 0
	for seen := 0; seen < terminators; {
		if in.Get() == Terminator {
			seen++
			continue
		}
		count++
	}
	return count
}
