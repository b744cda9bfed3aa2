package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Gerador de carga para validar o gateway na prática: dispara requisições em
// ritmo constante e conta quantas passaram (200) e quantas foram barradas
// (429). O ritmo usa um rate.Limiter só para espaçar os envios; a admissão
// de verdade acontece do outro lado, no gateway.
func main() {
	target := flag.String("target", "http://localhost:8080/consulta", "URL do gateway")
	apiKey := flag.String("key", "demo", "valor do header X-Api-Key (vazio = não autenticado)")
	rps := flag.Float64("rps", 5, "requisições por segundo")
	dur := flag.Duration("dur", 10*time.Second, "duração do teste")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *dur)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 1)
	client := &http.Client{Timeout: 5 * time.Second}

	var sent, allowed, limited, failed int
	var lastRemaining string
	for {
		if err := limiter.Wait(ctx); err != nil {
			break
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, *target, nil)
		if err != nil {
			log.Fatalf("request error: %v", err)
		}
		if *apiKey != "" {
			req.Header.Set("X-Api-Key", *apiKey)
		}

		resp, err := client.Do(req)
		sent++
		if err != nil {
			failed++
			continue
		}
		switch resp.StatusCode {
		case http.StatusOK:
			allowed++
			lastRemaining = resp.Header.Get("X-RateLimit-Remaining")
		case http.StatusTooManyRequests:
			limited++
		default:
			failed++
		}
		resp.Body.Close()
	}

	fmt.Printf("enviadas=%d admitidas=%d barradas=%d falhas=%d\n", sent, allowed, limited, failed)
	if lastRemaining != "" {
		fmt.Printf("último X-RateLimit-Remaining: %s\n", lastRemaining)
	}
}
