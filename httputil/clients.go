package httputil

import (
	"net/http"
	"time"
)

type Clients struct {
	Market *http.Client // market-data comparables API
}

func NewClients(timeout time.Duration) *Clients {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Clients{
		Market: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}
