package rpc

import "strings"

type ValidationServiceConfig struct {
	AvailableMarkets []string
	// depth used when a request asks for none, and the upper bound otherwise
	VisibleDepth int
}

type ValidationService struct {
	config *ValidationServiceConfig
}

func NewValidationService(config *ValidationServiceConfig) *ValidationService {
	return &ValidationService{
		config: config,
	}
}

func (s *ValidationService) IsSupportedMarket(market string) bool {
	for _, m := range s.config.AvailableMarkets {
		if strings.EqualFold(m, market) {
			return true
		}
	}
	return false
}

// Depth resolves the requested depth against the visible depth.
func (s *ValidationService) Depth(maxDepth int) int {
	if maxDepth <= 0 || maxDepth > s.config.VisibleDepth {
		return s.config.VisibleDepth
	}
	return maxDepth
}
