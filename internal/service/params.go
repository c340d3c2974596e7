package service

import "time"

// Options sizes the update pipeline.
type Options struct {
	Workers     int  // concurrent updates
	QueueSize   int  // pending updates before submissions are refused
	HistorySize int  // results kept for /updates
	AtomicGuard bool // storage-side conditional update instead of read-then-write
}

// SeedParams describes the starting users: user1..userN with BaseBalance + i*BalanceStep.
type SeedParams struct {
	Users       int
	BaseBalance int64
	BalanceStep int64
}

// LoadParams describes a startup burst of update requests.
type LoadParams struct {
	Requests int           // 0 disables the burst
	Interval time.Duration // pause between submissions; 0 submits as fast as the queue allows
	Cities   []string      // picked uniformly per request
}
