// Command lncli is a thin command-line client for the engine's Wallet
// and Payments RPCs, dialing over loopback per spec §4.1 "authentication
// (none required on loopback; production deployments expect a
// transport-layer wrapper)".
//
// Grounded on lnd's cmd/lncli: a urfave/cli.App with one subcommand per
// RPC, each building its request from flags/args, calling the client,
// and printing the response. The TLS/macaroon dial plumbing in the
// original is dropped along with lnrpc, since this engine's RPC surface
// has no such layer to dial into.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/satsengine/lnengine/internal/rpcapi"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[lncli] %v\n", err)
	os.Exit(1)
}

func getConn(ctx *cli.Context) *grpc.ClientConn {
	addr := ctx.GlobalString("rpcserver")
	conn, err := grpc.Dial(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		rpcapi.ClientCodecOption(),
	)
	if err != nil {
		fatal(fmt.Errorf("dialing %s: %w", addr, err))
	}
	return conn
}

func walletClient(ctx *cli.Context) (rpcapi.WalletClient, func()) {
	conn := getConn(ctx)
	return rpcapi.NewWalletClient(conn), func() { conn.Close() }
}

func paymentsClient(ctx *cli.Context) (rpcapi.PaymentsClient, func()) {
	conn := getConn(ctx)
	return rpcapi.NewPaymentsClient(conn), func() { conn.Close() }
}

func callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func main() {
	app := cli.NewApp()
	app.Name = "lncli"
	app.Usage = "control plane for a running lnengine instance"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rpcserver",
			Value: "127.0.0.1:50051",
			Usage: "host:port of the lnengine RPC listener",
		},
	}
	app.Commands = []cli.Command{
		createWalletCommand,
		balanceCommand,
		newInvoiceCommand,
		sendPaymentCommand,
		processPaymentCommand,
		paymentStatusCommand,
		refundCommand,
		streamCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
