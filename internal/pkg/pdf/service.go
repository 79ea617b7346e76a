// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/commerce-api/internal/config"
	"github.com/your-org/commerce-api/internal/domain/order"
)

// Service handles PDF invoice generation
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// RenderInvoice generates the invoice PDF for an order, writes it under the
// configured output directory and returns the file path.
func (s *Service) RenderInvoice(o *order.Order) (string, error) {
	buf, err := s.GenerateInvoice(o)
	if err != nil {
		return "", err
	}

	outDir := s.config.External.Invoice.OutputDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create invoice directory: %w", err)
	}

	path := filepath.Join(outDir, fmt.Sprintf("invoice-%s.pdf", o.OrderNumber))
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to write invoice file: %w", err)
	}

	return path, nil
}

// GenerateInvoice renders a PDF invoice for an order into memory
func (s *Service) GenerateInvoice(o *order.Order) (*bytes.Buffer, error) {
	data := s.buildInvoiceData(o)

	htmlContent, err := s.generateHTML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

func (s *Service) buildInvoiceData(o *order.Order) InvoiceData {
	items := make([]InvoiceItem, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, InvoiceItem{
			Name:     item.ProductName,
			SKU:      item.SKU,
			Quantity: item.Quantity,
			Price:    item.Price.StringFixed(2),
			Total:    item.Total.StringFixed(2),
			Remarks:  item.Remarks,
		})
	}

	return InvoiceData{
		InvoiceNumber: fmt.Sprintf("INV-%s", o.OrderNumber),
		InvoiceDate:   time.Now().Format("January 2, 2006"),
		DueDate:       time.Now().AddDate(0, 0, 30).Format("January 2, 2006"),
		Order:         o,
		Items:         items,
		Subtotal:      o.Subtotal.StringFixed(2),
		Shipping:      o.Shipping.StringFixed(2),
		Tax:           o.Tax.StringFixed(2),
		Discount:      o.Discount.StringFixed(2),
		HasDiscount:   o.Discount.IsPositive(),
		GrandTotal:    o.GrandTotal.StringFixed(2),
		Company: CompanyInfo{
			Name:    s.config.External.Invoice.CompanyName,
			Address: s.config.External.Invoice.CompanyAddress,
			Phone:   s.config.External.Invoice.CompanyPhone,
			Email:   s.config.External.Invoice.CompanyEmail,
		},
	}
}

// generateHTML generates HTML content from template
func (s *Service) generateHTML(data InvoiceData) (string, error) {
	tmpl := template.Must(template.New("invoice").Parse(invoiceTemplate))

	var buf bytes.Buffer
	err := tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// InvoiceData represents the data passed to the invoice template
type InvoiceData struct {
	InvoiceNumber string        `json:"invoice_number"`
	InvoiceDate   string        `json:"invoice_date"`
	DueDate       string        `json:"due_date"`
	Order         *order.Order  `json:"order"`
	Items         []InvoiceItem `json:"items"`
	Subtotal      string        `json:"subtotal"`
	Shipping      string        `json:"shipping"`
	Tax           string        `json:"tax"`
	Discount      string        `json:"discount"`
	HasDiscount   bool          `json:"has_discount"`
	GrandTotal    string        `json:"grand_total"`
	Company       CompanyInfo   `json:"company"`
}

// InvoiceItem is a pre-formatted line item for the invoice template
type InvoiceItem struct {
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
	Total    string `json:"total"`
	Remarks  string `json:"remarks,omitempty"`
}

// CompanyInfo represents company information
type CompanyInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// Invoice HTML template
const invoiceTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Invoice {{.InvoiceNumber}}</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            margin: 0;
            padding: 20px;
            color: #333;
        }
        .header {
            display: flex;
            justify-content: space-between;
            margin-bottom: 30px;
            border-bottom: 2px solid #eee;
            padding-bottom: 20px;
        }
        .company-info {
            flex: 1;
        }
        .invoice-info {
            text-align: right;
            flex: 1;
        }
        .invoice-title {
            font-size: 28px;
            font-weight: bold;
            color: #2563eb;
            margin-bottom: 10px;
        }
        .invoice-details {
            margin-bottom: 30px;
        }
        .invoice-details table {
            width: 100%;
        }
        .invoice-details td {
            padding: 5px 0;
            vertical-align: top;
        }
        .invoice-details .label {
            font-weight: bold;
            width: 150px;
        }
        .shipping-info {
            margin-bottom: 30px;
        }
        .section-title {
            font-size: 16px;
            font-weight: bold;
            margin-bottom: 10px;
            color: #374151;
        }
        .items-table {
            width: 100%;
            border-collapse: collapse;
            margin-bottom: 30px;
        }
        .items-table th,
        .items-table td {
            border: 1px solid #ddd;
            padding: 12px 8px;
            text-align: left;
        }
        .items-table th {
            background-color: #f8f9fa;
            font-weight: bold;
        }
        .items-table .qty-col,
        .items-table .price-col,
        .items-table .total-col {
            text-align: right;
            width: 80px;
        }
        .totals {
            float: right;
            width: 300px;
        }
        .totals table {
            width: 100%;
            border-collapse: collapse;
        }
        .totals td {
            padding: 8px;
            border-bottom: 1px solid #eee;
        }
        .totals .label {
            text-align: right;
            font-weight: bold;
        }
        .totals .amount {
            text-align: right;
            width: 100px;
        }
        .total-row {
            font-size: 18px;
            font-weight: bold;
            border-top: 2px solid #333 !important;
        }
        .footer {
            margin-top: 50px;
            padding-top: 20px;
            border-top: 1px solid #eee;
            text-align: center;
            color: #666;
            font-size: 12px;
        }
        .status-badge {
            display: inline-block;
            padding: 4px 8px;
            border-radius: 4px;
            font-size: 12px;
            font-weight: bold;
            text-transform: uppercase;
        }
        .status-paid {
            background-color: #dcfce7;
            color: #166534;
        }
        .status-pending {
            background-color: #fef3c7;
            color: #92400e;
        }
    </style>
</head>
<body>
    <div class="header">
        <div class="company-info">
            <h1>{{.Company.Name}}</h1>
            <p>{{.Company.Address}}</p>
            <p>Phone: {{.Company.Phone}}</p>
            <p>Email: {{.Company.Email}}</p>
        </div>
        <div class="invoice-info">
            <div class="invoice-title">INVOICE</div>
            <p><strong>Invoice #:</strong> {{.InvoiceNumber}}</p>
            <p><strong>Invoice Date:</strong> {{.InvoiceDate}}</p>
            <p><strong>Due Date:</strong> {{.DueDate}}</p>
            <p><strong>Order #:</strong> {{.Order.OrderNumber}}</p>
        </div>
    </div>

    <div class="invoice-details">
        <table>
            <tr>
                <td class="label">Order Date:</td>
                <td>{{.Order.CreatedAt.Format "January 2, 2006"}}</td>
                <td class="label" style="text-align: right;">Payment Status:</td>
                <td style="text-align: right;">
                    <span class="status-badge {{if eq (printf "%s" .Order.PaymentStatus) "paid"}}status-paid{{else}}status-pending{{end}}">
                        {{.Order.PaymentStatus}}
                    </span>
                </td>
            </tr>
            <tr>
                <td class="label">Order Status:</td>
                <td>{{.Order.Status}}</td>
                <td class="label" style="text-align: right;">Currency:</td>
                <td style="text-align: right;">{{.Order.Currency}}</td>
            </tr>
        </table>
    </div>

    <div class="shipping-info">
        <div class="section-title">Ship To:</div>
        <p><strong>{{.Order.ShippingAddress.Name}}</strong></p>
        <p>{{.Order.ShippingAddress.Line1}}</p>
        {{if .Order.ShippingAddress.Line2}}<p>{{.Order.ShippingAddress.Line2}}</p>{{end}}
        <p>{{.Order.ShippingAddress.City}}, {{.Order.ShippingAddress.State}} {{.Order.ShippingAddress.PostalCode}}</p>
        <p>{{.Order.ShippingAddress.Country}}</p>
        {{if .Order.ShippingAddress.Phone}}<p>Phone: {{.Order.ShippingAddress.Phone}}</p>{{end}}
        <p>Email: {{.Order.CustomerEmail}}</p>
    </div>

    <table class="items-table">
        <thead>
            <tr>
                <th>Item</th>
                <th>SKU</th>
                <th class="qty-col">Qty</th>
                <th class="price-col">Price</th>
                <th class="total-col">Total</th>
            </tr>
        </thead>
        <tbody>
            {{range .Items}}
            <tr>
                <td>
                    <strong>{{.Name}}</strong>
                    {{if .Remarks}}<br><small>{{.Remarks}}</small>{{end}}
                </td>
                <td>{{.SKU}}</td>
                <td class="qty-col">{{.Quantity}}</td>
                <td class="price-col">{{.Price}}</td>
                <td class="total-col">{{.Total}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="totals">
        <table>
            <tr>
                <td class="label">Subtotal:</td>
                <td class="amount">{{.Subtotal}}</td>
            </tr>
            {{if .HasDiscount}}
            <tr>
                <td class="label">Discount:</td>
                <td class="amount">-{{.Discount}}</td>
            </tr>
            {{end}}
            <tr>
                <td class="label">Shipping:</td>
                <td class="amount">{{.Shipping}}</td>
            </tr>
            <tr>
                <td class="label">Tax:</td>
                <td class="amount">{{.Tax}}</td>
            </tr>
            <tr class="total-row">
                <td class="label">Total:</td>
                <td class="amount">{{.GrandTotal}}</td>
            </tr>
        </table>
    </div>

    <div style="clear: both;"></div>

    <div class="footer">
        <p>Thank you for your business!</p>
        <p>If you have any questions about this invoice, please contact us at {{.Company.Email}} or {{.Company.Phone}}</p>
    </div>
</body>
</html>
`
