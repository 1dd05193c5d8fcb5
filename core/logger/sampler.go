package logger

import (
	"strconv"
	"strings"
	"sync"
)

// ratioSampler lets through keep of every window debug records, deterministically.
type ratioSampler struct {
	mu     sync.Mutex
	keep   int
	window int
	seq    int
}

func newRatioSampler(keep, window int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(keep, window)
	return s
}

// Set replaces the ratio and restarts the window. Non-positive values disable sampling.
func (s *ratioSampler) Set(keep, window int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = 0
	if keep <= 0 || window <= 0 {
		s.keep, s.window = 0, 0
		return
	}
	s.keep, s.window = min(keep, window), window
}

func (s *ratioSampler) Allow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.window == 0 {
		return true
	}
	s.seq = s.seq%s.window + 1
	return s.seq <= s.keep
}

// parseRatioSpec accepts "k/n" or a bare "n" meaning 1/n.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if num, den, ok := strings.Cut(spec, "/"); ok {
		k, err1 := strconv.Atoi(strings.TrimSpace(num))
		n, err2 := strconv.Atoi(strings.TrimSpace(den))
		if err1 != nil || err2 != nil {
			return 0, 0
		}
		return k, n
	}
	n, err := strconv.Atoi(spec)
	if err != nil || n <= 0 {
		return 0, 0
	}
	return 1, n
}
