// Package receipt renders a printable PDF for a completed ticket
// purchase, for kiosks with an attached printer.
package receipt

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/oklog/ulid/v2"

	"showpass/internal/models"
	"showpass/pkg/utils"
)

// Receipt is one completed purchase.
type Receipt struct {
	Number    string
	UserName  string
	ShowName  string
	Quantity  int
	UnitPrice float64
	IssuedAt  time.Time
}

// New builds a receipt for a purchase, stamping a fresh receipt number.
func New(user models.User, show models.Show, quantity int) Receipt {
	return Receipt{
		Number:    ulid.Make().String(),
		UserName:  user.Name,
		ShowName:  show.Name,
		Quantity:  quantity,
		UnitPrice: show.Price,
		IssuedAt:  time.Now(),
	}
}

// Total is the amount debited from the wallet.
func (r Receipt) Total() float64 {
	return r.UnitPrice * float64(r.Quantity)
}

// Render produces the PDF bytes.
func Render(r Receipt) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Ticket Purchase Receipt", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Receipt No: %s", r.Number), "", 1, "C", false, 0, "")
	pdf.CellFormat(190, 6, fmt.Sprintf("Issued: %s", r.IssuedAt.Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Purchase details
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Purchase Details", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Name: %s", r.UserName), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Show: %s", r.ShowName), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Tickets: %d", r.Quantity), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Price each: %s", utils.FormatRupees(r.UnitPrice)), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Total
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(200, 255, 200)
	pdf.CellFormat(190, 10, fmt.Sprintf("Total: %s", utils.FormatRupees(r.Total())), "1", 1, "C", true, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
