package logic

// MaxBurstSize bounds the number of raw reads taken in one tick.
const MaxBurstSize = 64

// CountActive returns how many raw levels are active under polarity p.
func CountActive(levels []bool, p Polarity) int {
	n := 0
	for _, l := range levels {
		if p.Active(l) {
			n++
		}
	}
	return n
}

// Majority reports whether active reaches the quorum.
// A quorum below 1 is treated as 1.
func Majority(active, quorum int) bool {
	if quorum < 1 {
		quorum = 1
	}
	return active >= quorum
}

// ClampQuorum limits a quorum to [1, burst].
func ClampQuorum(quorum, burst int) int {
	if burst < 1 {
		burst = 1
	}
	if quorum < 1 {
		return 1
	}
	if quorum > burst {
		return burst
	}
	return quorum
}

// ClampBurst limits a burst size to [1, MaxBurstSize].
func ClampBurst(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxBurstSize {
		return MaxBurstSize
	}
	return n
}
