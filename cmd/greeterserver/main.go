// Command greeterserver hosts internal/greeter's Server on a plain H2C
// net/http server, demonstrating grpcwire's stdlib-only server path (no
// gin, unlike cmd/repro).
package main

import (
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/coldharbor/grpcwire"
	"github.com/coldharbor/grpcwire/internal/greeter"
)

func main() {
	addr := flag.String("addr", ":8080", "address to listen on")
	slowDelay := flag.Duration("slow-hello-delay", 2*time.Second, "artificial delay for SlowHello")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	negotiation, err := grpcwire.PreferOrder(grpcwire.DefaultRegistry(), grpcwire.CompressionGzip, grpcwire.CompressionIdentity)
	if err != nil {
		logger.Sugar().Fatalf("build compression negotiation: %v", err)
	}

	mux := greeter.NewMux(
		greeter.Server{SlowHelloDelay: *slowDelay},
		grpcwire.WithHandlerLogger(grpcwire.NewZapLogger(logger)),
		grpcwire.WithHandlerCompression(negotiation),
	)

	server := grpcwire.NewH2CServer(*addr, mux)
	logger.Sugar().Infof("greeterserver listening on %s", *addr)
	if err := server.ListenAndServe(); err != nil {
		logger.Sugar().Fatalf("serve: %v", err)
	}
}
