package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	simulateASIN     string
	simulatePrevious float64
	simulateCurrent  float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次降价并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulatePrevious <= 0 || simulateCurrent <= 0 {
			return errors.New("--previous 与 --current 必须大于 0")
		}
		if simulateASIN == "" {
			return errors.New("--asin 不能为空")
		}

		previous := decimal.NewFromFloat(simulatePrevious)
		current := decimal.NewFromFloat(simulateCurrent)
		return getApp().SimulateAlert(cmd.Context(), simulateASIN, previous, current)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateASIN, "asin", "B000000000", "ASIN shown in the alert")
	simulateCmd.Flags().Float64Var(&simulatePrevious, "previous", 0, "上一次观测值 (价格为主单位)")
	simulateCmd.Flags().Float64Var(&simulateCurrent, "current", 0, "本次观测值 (价格为主单位)")
}
