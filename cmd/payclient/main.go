package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/raid-guild/x402-paygate-go/app"
	"github.com/raid-guild/x402-paygate-go/client"
	"github.com/raid-guild/x402-paygate-go/core"
	"github.com/raid-guild/x402-paygate-go/explorer"
	"github.com/raid-guild/x402-paygate-go/wallet"
)

func main() {
	var (
		resourceURL    = flag.String("url", "http://localhost:8080/api/protected", "protected resource URL")
		chainID        = flag.Int64("chain-id", 84532, "chain ID of the settlement network")
		rpcURL         = flag.String("rpc-url", os.Getenv("RPC_URL"), "RPC endpoint for the settlement network")
		explorerURL    = flag.String("explorer-url", os.Getenv("EXPLORER_URL"), "block explorer API base URL")
		explorerAPIKey = flag.String("explorer-api-key", os.Getenv("EXPLORER_API_KEY"), "block explorer API key")
		timeout        = flag.Duration("timeout", 5*time.Minute, "overall attempt timeout")
		logLevel       = flag.String("log-level", "INFO", "log level")
	)
	flag.Parse()

	privateKey := os.Getenv("PRIVATE_KEY")
	if privateKey == "" {
		log.Fatal("PRIVATE_KEY environment variable is not set")
	}

	logger := app.Logger(*logLevel)
	defer logger.Sync()

	w, err := wallet.NewLocalWallet(privateKey, *chainID, *rpcURL)
	if err != nil {
		logger.Fatal("wallet init", zap.Error(err))
	}

	var checker core.StatusChecker
	switch {
	case *explorerURL != "":
		checker = explorer.New(*explorerURL, *explorerAPIKey)
	case *rpcURL != "":
		checker = core.ChainStatusChecker{RPCURL: *rpcURL}
	}

	payer := client.Client{
		Wallet: w,
		Status: checker,
		Log:    logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	body, err := payer.Pay(ctx, *resourceURL)
	if err != nil {
		logger.Fatal("payment failed", zap.Error(err))
	}

	fmt.Println(string(body))
}
