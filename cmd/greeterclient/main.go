// Command greeterclient calls internal/greeter's Server over H2C,
// demonstrating ClientConn, UnaryClient, and deadline propagation.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/coldharbor/grpcwire"
	"github.com/coldharbor/grpcwire/internal/greeter"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "server base URL")
	name := flag.String("name", "World", "name to greet")
	slow := flag.Bool("slow", false, "call SlowHello instead of SayHello")
	timeout := flag.Duration("timeout", 3*time.Second, "per-call timeout")
	flag.Parse()

	negotiation, err := grpcwire.PreferOrder(grpcwire.DefaultRegistry(), grpcwire.CompressionGzip, grpcwire.CompressionIdentity)
	if err != nil {
		log.Fatalf("build compression negotiation: %v", err)
	}
	conn := grpcwire.NewClientConn(*addr, grpcwire.WithClientCompression(negotiation))

	procedure := greeter.ProcedureSayHello
	if *slow {
		procedure = greeter.ProcedureSlowHello
	}
	client := grpcwire.NewUnaryClient[greeter.HelloRequest, greeter.HelloResponse](
		conn, conn.URL(procedure), greeter.Descriptor(procedure), conn.Negotiation(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, _, err := client.Call(ctx, &greeter.HelloRequest{Name: *name})
	if err != nil {
		if grpcwire.CodeOf(err) == grpcwire.CodeDeadlineExceeded {
			log.Fatalf("call timed out after %s: %v", *timeout, err)
		}
		var grpcErr *grpcwire.Error
		if errors.As(err, &grpcErr) {
			log.Fatalf("call failed with %s: %s", grpcErr.Code(), grpcErr.Message())
		}
		log.Fatalf("call failed: %v", err)
	}
	log.Println(res.Greeting)
}
