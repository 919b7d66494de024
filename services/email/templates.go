package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"donation-checkout-api/models"
)

var periodLabels = map[string]string{
	"day":   "daily",
	"week":  "weekly",
	"month": "monthly",
}

type receiptView struct {
	DonorName     string
	FormTitle     string
	Amount        string
	Currency      string
	Frequency     string
	DonationID    int64
	TransactionID string
	DonatedAt     string
}

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Thank you for your donation</title>
</head>
<body style="margin: 0; padding: 0; background-color: #f9fafb; font-family: 'Inter', Arial, sans-serif;">
    <table role="presentation" cellspacing="0" cellpadding="0" border="0" width="100%" style="background-color: #f9fafb;">
        <tr>
            <td align="center" style="padding: 40px 20px;">
                <table role="presentation" cellspacing="0" cellpadding="0" border="0" width="600" style="max-width: 600px; background-color: #ffffff; border-radius: 12px; overflow: hidden;">
                    <tr>
                        <td style="background-color: #25364D; padding: 32px 20px; text-align: center; color: #ffffff; font-size: 22px; font-weight: 600;">
                            Thank you, {{.DonorName}}!
                        </td>
                    </tr>
                    <tr>
                        <td style="padding: 40px;">
                            <p style="color: #374151; font-size: 16px; line-height: 24px; margin: 0 0 24px 0;">
                                Your {{.Frequency}} gift to <strong>{{.FormTitle}}</strong> has been received.
                            </p>
                            <table role="presentation" cellspacing="0" cellpadding="0" border="0" width="100%" style="border-top: 1px solid #e5e7eb;">
                                <tr>
                                    <td style="padding: 12px 0; color: #6b7280;">Amount</td>
                                    <td style="padding: 12px 0; text-align: right; color: #111827; font-weight: 600;">{{.Amount}} {{.Currency}}</td>
                                </tr>
                                <tr>
                                    <td style="padding: 12px 0; color: #6b7280;">Frequency</td>
                                    <td style="padding: 12px 0; text-align: right; color: #111827;">{{.Frequency}}</td>
                                </tr>
                                <tr>
                                    <td style="padding: 12px 0; color: #6b7280;">Donation</td>
                                    <td style="padding: 12px 0; text-align: right; color: #111827;">#{{.DonationID}}</td>
                                </tr>
                                <tr>
                                    <td style="padding: 12px 0; color: #6b7280;">Transaction</td>
                                    <td style="padding: 12px 0; text-align: right; color: #111827;">{{.TransactionID}}</td>
                                </tr>
                                <tr>
                                    <td style="padding: 12px 0; color: #6b7280;">Date</td>
                                    <td style="padding: 12px 0; text-align: right; color: #111827;">{{.DonatedAt}}</td>
                                </tr>
                            </table>
                            <p style="color: #6b7280; font-size: 14px; line-height: 20px; margin: 24px 0 0 0;">
                                Your card will be charged {{.Amount}} {{.Currency}} {{.Frequency}} until you cancel.
                            </p>
                        </td>
                    </tr>
                </table>
            </td>
        </tr>
    </table>
</body>
</html>
`))

func ReceiptSubject(donation *models.Donation) string {
	title := strings.TrimSpace(donation.FormTitle)
	if title == "" {
		return "Thank you for your donation"
	}
	return fmt.Sprintf("Thank you for your donation to %s", title)
}

// RenderDonationReceipt renders the HTML receipt. Donor supplied values are
// escaped by html/template.
func RenderDonationReceipt(donation *models.Donation) (string, error) {
	name := strings.TrimSpace(donation.Donor.FirstName + " " + donation.Donor.LastName)
	if name == "" {
		name = "friend"
	}

	frequency, ok := periodLabels[donation.Period]
	if !ok {
		frequency = "recurring"
	}

	title := donation.FormTitle
	if title == "" {
		title = "our cause"
	}

	view := receiptView{
		DonorName:     name,
		FormTitle:     title,
		Amount:        donation.Amount,
		Currency:      strings.ToUpper(donation.Currency),
		Frequency:     frequency,
		DonationID:    donation.ID,
		TransactionID: donation.TransactionID,
		DonatedAt:     donation.DonatedAt.Format("January 2, 2006"),
	}

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("error rendering receipt: %v", err)
	}
	return buf.String(), nil
}
