package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/michaelpento.lv/arbbot/chain"
	"github.com/michaelpento.lv/arbbot/cmd/bot"
	"github.com/michaelpento.lv/arbbot/config"
	"github.com/michaelpento.lv/arbbot/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the arbitrage bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := utils.GetLogger()

		cfg, err := config.LoadConfig(configDir, network)
		if err != nil {
			log.Fatal("Failed to load config", zap.Error(err))
		}
		secure, err := config.LoadSecureConfig()
		if err != nil {
			log.Fatal("Failed to load environment", zap.Error(err))
		}

		ctx := cmd.Context()

		rt := cfg.Runtime
		client, ethClient, err := chain.Dial(ctx, secure.RPCURL, chain.ClientConfig{
			Timeout:           rt.RPCTimeout.Std(),
			RequestsPerSecond: rt.RPCRateLimit.RequestsPerSecond,
			BurstSize:         rt.RPCRateLimit.BurstSize,
		})
		if err != nil {
			log.Fatal("Failed to connect to node", zap.Error(err))
		}
		defer ethClient.Close()

		chainID, err := ethClient.ChainID(ctx)
		if err != nil {
			log.Fatal("Failed to read chain id", zap.Error(err))
		}

		key, err := crypto.HexToECDSA(strings.TrimPrefix(secure.PrivateKey, "0x"))
		if err != nil {
			log.Fatal("Invalid private key", zap.Error(err))
		}
		opts, err := bind.NewKeyedTransactorWithChainID(key, chainID)
		if err != nil {
			log.Fatal("Failed to create transactor", zap.Error(err))
		}

		b, err := bot.New(ctx, cfg, client, opts, nil, log)
		if err != nil {
			log.Fatal("Failed to create bot", zap.Error(err))
		}
		if err := b.Start(ctx); err != nil {
			return fmt.Errorf("failed to start bot: %w", err)
		}

		select {
		case <-ctx.Done():
			log.Info("Shutting down gracefully...")
			return b.Stop()
		case <-b.Done():
			err := b.Stop()
			log.Error("Bot stopped unexpectedly", zap.Error(err))
			if err == nil {
				err = errors.New("bot stopped unexpectedly")
			}
			return err
		}
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
