package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/omoto202/mycoin3/foundation/blockchain/database"
	"github.com/omoto202/mycoin3/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "Ask the node to mine a block crediting this wallet",
	Run:   mineRun,
}

func init() {
	rootCmd.AddCommand(mineCmd)
}

func mineRun(cmd *cobra.Command, args []string) {
	privateKey, err := crypto.LoadECDSA(getPrivateKeyPath())
	if err != nil {
		log.Fatal(err)
	}

	req := struct {
		Miner string `json:"miner"`
	}{
		Miner: signature.PublicKeyToIdentity(privateKey.PublicKey),
	}

	data, err := json.Marshal(req)
	if err != nil {
		log.Fatal(err)
	}

	resp, err := http.Post(fmt.Sprintf("%s/v1/mine", url), "application/json", bytes.NewBuffer(data))
	if err != nil {
		log.Fatal(err)
	}
	defer resp.Body.Close()

	var mined struct {
		Block       database.Block `json:"block"`
		ChainLength int            `json:"chain_length"`
	}
	if err := decodeResponse(resp, &mined); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("mined: blk[%d]: hash[%s]: nonce[%d]: chain[%d]\n", mined.Block.Index, mined.Block.Hash, mined.Block.Nonce, mined.ChainLength)
}
