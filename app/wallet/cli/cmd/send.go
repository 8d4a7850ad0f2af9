package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/omoto202/mycoin3/foundation/blockchain/database"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount string
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Sign and send a transaction",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
		if err != nil {
			log.Fatal(err)
		}

		sendWithDetails(privateKey)
	},
}

func sendWithDetails(privateKey *ecdsa.PrivateKey) {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		log.Fatalf("invalid amount %q: %s", amount, err)
	}

	signedTx, err := database.NewTx("", to, value).Sign(privateKey)
	if err != nil {
		log.Fatal(err)
	}

	data, err := json.Marshal(signedTx)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/tx/submit", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var receipt struct {
		PendingCount int             `json:"pending_count"`
		Balance      decimal.Decimal `json:"balance"`
	}
	if err := decodeResponse(resp, &receipt); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("accepted: pending[%d]: balance[%s]\n", receipt.PendingCount, receipt.Balance)
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Identity of the recipient.")
	sendCmd.Flags().StringVarP(&amount, "amount", "v", "0", "Amount to send.")
	sendCmd.MarkFlagRequired("to")
}
