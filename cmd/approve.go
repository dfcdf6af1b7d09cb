package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mselser95/polymarket-arb/pkg/types"
	"github.com/spf13/cobra"
)

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve a scanned opportunity, turning it into a task",
	Long: `Posts a task creation request to a running "run" daemon, the operator
approval step between the scanner surfacing an opportunity and the executor
acting on it. The daemon must already be running and reachable at --api-url.`,
	RunE: runApproveTask,
}

var (
	approveAPIURL        string
	approveMarketID      string
	approveType          string
	approveStrategy      string
	approveSide          string
	approveQuantity      float64
	approvePredictPrice  float64
	approveHedgeMaxAsk   float64
	approveHedgeMinBid   float64
	approveEntryCost     float64
	approvePredictAsk    float64
	approveMaxTotalCost  float64
	approvePredictBid    float64
)

func init() {
	rootCmd.AddCommand(approveCmd)

	approveCmd.Flags().StringVar(&approveAPIURL, "api-url", "http://localhost:8080", "Base URL of the running daemon")
	approveCmd.Flags().StringVar(&approveMarketID, "market-id", "", "Maker market id for the task (required)")
	approveCmd.Flags().StringVar(&approveType, "type", "", "Task type: BUY or SELL (required)")
	approveCmd.Flags().StringVar(&approveStrategy, "strategy", "MAKER", "Maker leg strategy: MAKER or TAKER")
	approveCmd.Flags().StringVar(&approveSide, "side", "", "Arb side: YES or NO (required)")
	approveCmd.Flags().Float64Var(&approveQuantity, "quantity", 0, "Quantity to work (required)")
	approveCmd.Flags().Float64Var(&approvePredictPrice, "predict-price", 0, "Maker limit price")
	approveCmd.Flags().Float64Var(&approveHedgeMaxAsk, "hedge-max-ask", 0, "Max hedge ask price (BUY)")
	approveCmd.Flags().Float64Var(&approveHedgeMinBid, "hedge-min-bid", 0, "Min hedge bid price (SELL)")
	approveCmd.Flags().Float64Var(&approveEntryCost, "entry-cost", 0, "Entry cost basis, required for SELL")
	approveCmd.Flags().Float64Var(&approvePredictAsk, "predict-ask-price", 0, "Maker ask price, required for TAKER-BUY")
	approveCmd.Flags().Float64Var(&approveMaxTotalCost, "max-total-cost", 0, "Max total cost, required for TAKER-BUY")
	approveCmd.Flags().Float64Var(&approvePredictBid, "predict-bid-price", 0, "Maker bid price, required for TAKER-SELL")

	_ = approveCmd.MarkFlagRequired("market-id")
	_ = approveCmd.MarkFlagRequired("type")
	_ = approveCmd.MarkFlagRequired("side")
	_ = approveCmd.MarkFlagRequired("quantity")
}

func runApproveTask(cmd *cobra.Command, args []string) error {
	input := types.TaskCreateInput{
		MarketID:        approveMarketID,
		Type:            types.TaskType(approveType),
		Strategy:        types.Strategy(approveStrategy),
		ArbSide:         types.Side(approveSide),
		Quantity:        approveQuantity,
		PredictPrice:    approvePredictPrice,
		HedgeMaxAsk:     approveHedgeMaxAsk,
		HedgeMinBid:     approveHedgeMinBid,
		EntryCost:       approveEntryCost,
		PredictAskPrice: approvePredictAsk,
		MaxTotalCost:    approveMaxTotalCost,
		PredictBidPrice: approvePredictBid,
	}

	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("marshal task input: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Post(approveAPIURL+"/api/tasks", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post task: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("daemon rejected task (status %d): %s", resp.StatusCode, string(respBody))
	}

	fmt.Println(string(respBody))
	return nil
}
