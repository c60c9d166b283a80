package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli"

	"github.com/satsengine/lnengine/internal/rpcapi"
)

func printJSON(v interface{}) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal(err)
	}
	os.Stdout.Write(b)
	fmt.Println()
}

var createWalletCommand = cli.Command{
	Name:      "createwallet",
	Usage:     "create a new wallet, or import one from a mnemonic",
	ArgsUsage: "[mnemonic]",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "label", Usage: "operator-facing label for this wallet"},
	},
	Action: createWallet,
}

func createWallet(ctx *cli.Context) error {
	client, cleanUp := walletClient(ctx)
	defer cleanUp()

	cctx, cancel := callCtx()
	defer cancel()

	resp, err := client.CreateWallet(cctx, &rpcapi.CreateWalletRequest{
		Mnemonic: ctx.Args().First(),
		Label:    ctx.String("label"),
	})
	if err != nil {
		return err
	}
	printJSON(resp)
	return nil
}

var balanceCommand = cli.Command{
	Name:   "balance",
	Usage:  "report the on-chain and Lightning spendable balances",
	Action: balance,
}

func balance(ctx *cli.Context) error {
	client, cleanUp := walletClient(ctx)
	defer cleanUp()

	cctx, cancel := callCtx()
	defer cancel()

	resp, err := client.GetBalance(cctx, &rpcapi.GetBalanceRequest{})
	if err != nil {
		return err
	}
	printJSON(resp)
	return nil
}

var newInvoiceCommand = cli.Command{
	Name:      "newinvoice",
	Usage:     "mint a BOLT-11 invoice",
	ArgsUsage: "amount-sats [memo]",
	Action:    newInvoice,
}

func newInvoice(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return cli.ShowCommandHelp(ctx, "newinvoice")
	}
	var amountSats int64
	if _, err := fmt.Sscan(ctx.Args().Get(0), &amountSats); err != nil {
		return fmt.Errorf("invalid amount-sats: %w", err)
	}

	client, cleanUp := walletClient(ctx)
	defer cleanUp()

	cctx, cancel := callCtx()
	defer cancel()

	resp, err := client.NewInvoice(cctx, &rpcapi.NewInvoiceRequest{
		AmountSats: amountSats,
		Memo:       ctx.Args().Get(1),
	})
	if err != nil {
		return err
	}
	printJSON(resp)
	return nil
}

var sendPaymentCommand = cli.Command{
	Name:      "sendpayment",
	Usage:     "pay a BOLT-11 invoice",
	ArgsUsage: "bolt11",
	Action:    sendPayment,
}

func sendPayment(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return cli.ShowCommandHelp(ctx, "sendpayment")
	}

	client, cleanUp := walletClient(ctx)
	defer cleanUp()

	cctx, cancel := callCtx()
	defer cancel()

	resp, err := client.SendPayment(cctx, &rpcapi.SendPaymentRequest{
		Bolt11: ctx.Args().First(),
	})
	if err != nil {
		return err
	}
	printJSON(resp)
	return nil
}

var processPaymentCommand = cli.Command{
	Name:      "processpayment",
	Usage:     "idempotently record and dispatch an application payment",
	ArgsUsage: "payment-id wallet-id amount-sats [invoice] [description]",
	Action:    processPayment,
}

func processPayment(ctx *cli.Context) error {
	if ctx.NArg() < 3 {
		return cli.ShowCommandHelp(ctx, "processpayment")
	}
	var amountSats int64
	if _, err := fmt.Sscan(ctx.Args().Get(2), &amountSats); err != nil {
		return fmt.Errorf("invalid amount-sats: %w", err)
	}

	client, cleanUp := paymentsClient(ctx)
	defer cleanUp()

	cctx, cancel := callCtx()
	defer cancel()

	resp, err := client.ProcessPayment(cctx, &rpcapi.ProcessPaymentRequest{
		PaymentID:   ctx.Args().Get(0),
		WalletID:    ctx.Args().Get(1),
		AmountSats:  amountSats,
		Invoice:     ctx.Args().Get(3),
		Description: ctx.Args().Get(4),
	})
	if err != nil {
		return err
	}
	printJSON(resp)
	return nil
}

var paymentStatusCommand = cli.Command{
	Name:      "paymentstatus",
	Usage:     "look up an application payment by payment-id",
	ArgsUsage: "payment-id",
	Action:    paymentStatus,
}

func paymentStatus(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return cli.ShowCommandHelp(ctx, "paymentstatus")
	}

	client, cleanUp := paymentsClient(ctx)
	defer cleanUp()

	cctx, cancel := callCtx()
	defer cancel()

	resp, err := client.GetPaymentStatus(cctx, &rpcapi.GetPaymentStatusRequest{
		PaymentID: ctx.Args().First(),
	})
	if err != nil {
		return err
	}
	printJSON(resp)
	return nil
}

var refundCommand = cli.Command{
	Name:      "refund",
	Usage:     "refund a completed application payment",
	ArgsUsage: "payment-id amount-sats [refund-invoice]",
	Action:    refund,
}

func refund(ctx *cli.Context) error {
	if ctx.NArg() < 2 {
		return cli.ShowCommandHelp(ctx, "refund")
	}
	var amountSats int64
	if _, err := fmt.Sscan(ctx.Args().Get(1), &amountSats); err != nil {
		return fmt.Errorf("invalid amount-sats: %w", err)
	}

	client, cleanUp := paymentsClient(ctx)
	defer cleanUp()

	cctx, cancel := callCtx()
	defer cancel()

	resp, err := client.ProcessRefund(cctx, &rpcapi.ProcessRefundRequest{
		PaymentID:     ctx.Args().Get(0),
		AmountSats:    amountSats,
		RefundInvoice: ctx.Args().Get(2),
	})
	if err != nil {
		return err
	}
	printJSON(resp)
	return nil
}

var streamCommand = cli.Command{
	Name:      "stream",
	Usage:     "stream a wallet's application payments, newest first",
	ArgsUsage: "wallet-id",
	Flags: []cli.Flag{
		cli.IntFlag{Name: "limit", Usage: "maximum records to print, 0 for unbounded"},
	},
	Action: streamPayments,
}

func streamPayments(ctx *cli.Context) error {
	if ctx.NArg() < 1 {
		return cli.ShowCommandHelp(ctx, "stream")
	}

	client, cleanUp := paymentsClient(ctx)
	defer cleanUp()

	cctx, cancel := callCtx()
	defer cancel()

	stream, err := client.PaymentStream(cctx, &rpcapi.PaymentStreamRequest{
		WalletID: ctx.Args().First(),
		Limit:    int32(ctx.Int("limit")),
	})
	if err != nil {
		return err
	}

	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		printJSON(resp)
	}
}
