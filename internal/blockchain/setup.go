// server/internal/blockchain/setup.go
package blockchain

import (
	"fmt"
	"os"
	"path/filepath"

	"recycle-pickup-api-server/config"

	fabconfig "github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
)

// FabricSetup holds the gateway connection used to anchor donation receipts.
type FabricSetup struct {
	Gateway  *gateway.Gateway
	Contract *gateway.Contract
	SDK      *fabsdk.FabricSDK
	Wallet   *gateway.Wallet
}

func Initialize(cfg config.FabricConfig) (*FabricSetup, error) {
	os.Setenv("DISCOVERY_AS_LOCALHOST", "true")

	fsWallet, err := gateway.NewFileSystemWallet(cfg.WalletPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}

	err = PopulateWallet(fsWallet, cfg.OrgName, cfg.UserName, cfg.UserCertPath, cfg.UserKeyDir)
	if err != nil {
		return nil, fmt.Errorf("failed to populate wallet for %s: %w", cfg.UserName, err)
	}

	sdk, err := fabsdk.New(fabconfig.FromFile(filepath.Clean(cfg.ConnectionProfile)))
	if err != nil {
		return nil, fmt.Errorf("failed to create fabsdk instance: %w", err)
	}

	gw, err := gateway.Connect(
		gateway.WithSDK(sdk),
		gateway.WithIdentity(fsWallet, cfg.UserName),
	)
	if err != nil {
		sdk.Close()
		return nil, fmt.Errorf("failed to connect to gateway: %w", err)
	}

	network, err := gw.GetNetwork(cfg.ChannelName)
	if err != nil {
		gw.Close()
		sdk.Close()
		return nil, fmt.Errorf("failed to get network: %w", err)
	}

	return &FabricSetup{
		Gateway:  gw,
		Contract: network.GetContract(cfg.ChaincodeName),
		SDK:      sdk,
		Wallet:   fsWallet,
	}, nil
}

func (fs *FabricSetup) Close() {
	fs.Gateway.Close()
	fs.SDK.Close()
}

// PopulateWallet stores the X.509 identity of userName unless the wallet
// already has it.
func PopulateWallet(wallet *gateway.Wallet, orgName, userName, certPath, keyDir string) error {
	if wallet.Exists(userName) {
		return nil
	}

	cert, err := os.ReadFile(filepath.Clean(certPath))
	if err != nil {
		return err
	}

	keyPath, err := findPrivateKey(keyDir)
	if err != nil {
		return err
	}
	key, err := os.ReadFile(filepath.Clean(keyPath))
	if err != nil {
		return err
	}

	identity := gateway.NewX509Identity(orgName+"MSP", string(cert), string(key))
	return wallet.Put(userName, identity)
}

// findPrivateKey returns the first regular file under dir. Fabric CA writes
// exactly one key into the keystore directory.
func findPrivateKey(dir string) (string, error) {
	keyPath := ""
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if keyPath != "" {
			return filepath.SkipDir
		}
		if !info.IsDir() {
			keyPath = path
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if keyPath == "" {
		return "", fmt.Errorf("no private key found in directory %s", dir)
	}
	return keyPath, nil
}
