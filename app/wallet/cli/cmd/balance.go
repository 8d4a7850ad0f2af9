package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/omoto202/mycoin3/foundation/blockchain/signature"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type balance struct {
	Identity string          `json:"identity"`
	Balance  decimal.Decimal `json:"balance"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Print your balance.",
	Run:   balanceRun,
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func balanceRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	id := signature.PublicKeyToIdentity(privateKey.PublicKey)
	fmt.Println("For Identity:", id)

	resp, err := http.Get(fmt.Sprintf("%s/v1/balance/%s", url, id))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var bal balance
	if err := decodeResponse(resp, &bal); err != nil {
		log.Fatal(err)
	}

	fmt.Println(bal.Balance)
}
