package httpapi

import (
	"bytes"
	"encoding/csv"
	"html/template"
	"strconv"

	"salonpos/backend/internal/domain"
)

func dashboardToCSV(d domain.Dashboard) (string, error) {
	rows := [][]string{
		{"section", "key", "value"},
		{"summary", "from", d.From},
		{"summary", "to", d.To},
		{"summary", "total_sales", d.TotalSales.StringFixed(2)},
		{"summary", "transactions", strconv.Itoa(d.TransactionCount)},
	}
	// Staff rows carry two values: staff,<name>,<total_tips>,<service_count>.
	for _, p := range d.StaffPerformance {
		rows = append(rows, []string{"staff", p.Name, p.TotalTips.StringFixed(2), strconv.Itoa(p.ServiceCount)})
	}
	for i, p := range d.TopTipEarners {
		rows = append(rows, []string{"top_tip_earner", strconv.Itoa(i + 1), p.Name})
	}
	for i, p := range d.MostServicesProvided {
		rows = append(rows, []string{"most_services", strconv.Itoa(i + 1), p.Name})
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.WriteAll(rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Staff and customer names are escaped by html/template.
var dashboardHTMLTmpl = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Salon Dashboard {{.From}} - {{.To}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Salon Dashboard {{.From}} - {{.To}}</h2>
  <p>Transactions: {{.TransactionCount}}</p>
  <p>Total sales: {{.TotalSales.StringFixed 2}}</p>

  <h3>Staff Performance</h3>
  <table>
    <thead><tr><th>Staff</th><th>Services</th><th>Tips</th></tr></thead>
    <tbody>{{range .StaffPerformance}}<tr><td>{{.Name}}</td><td style="text-align:right;">{{.ServiceCount}}</td><td style="text-align:right;">{{.TotalTips.StringFixed 2}}</td></tr>{{end}}</tbody>
  </table>

  <h3>Top Tip Earners</h3>
  <ol>{{range .TopTipEarners}}<li>{{.Name}} ({{.TotalTips.StringFixed 2}})</li>{{end}}</ol>

  <h3>Most Services Provided</h3>
  <ol>{{range .MostServicesProvided}}<li>{{.Name}} ({{.ServiceCount}})</li>{{end}}</ol>
</body>
</html>
`))

func dashboardToPrintableHTML(d domain.Dashboard) string {
	var buf bytes.Buffer
	if err := dashboardHTMLTmpl.Execute(&buf, d); err != nil {
		return "<!doctype html><html><body><p>Report rendering error.</p></body></html>"
	}
	return buf.String()
}
