package utils

import "fmt"

// FormatRupees renders an amount the way receipts and notifications
// show it.
func FormatRupees(amount float64) string {
	return fmt.Sprintf("Rs. %.2f", amount)
}
