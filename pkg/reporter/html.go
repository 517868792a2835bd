package reporter

import (
	"fmt"
	"html/template"
	"io"
	"strings"
)

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Job Sizing Report - {{.Source}}</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #333;
            padding: 20px;
            line-height: 1.6;
        }
        .container {
            max-width: 1200px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0, 0, 0, 0.1);
            overflow: hidden;
        }
        .header {
            background: linear-gradient(135deg, #326ce5 0%, #1a4d8f 100%);
            color: white;
            padding: 40px;
        }
        .header h1 { font-size: 2.2em; margin-bottom: 10px; }
        .summary {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(240px, 1fr));
            gap: 20px;
            padding: 30px 40px;
        }
        .summary-card {
            padding: 20px;
            border-radius: 12px;
            border-left: 4px solid #326ce5;
            background: #f8f9fa;
        }
        .summary-card .value { font-size: 2em; font-weight: 700; color: #1a4d8f; }
        .section { padding: 20px 40px; }
        .section h2 { font-size: 1.3em; margin-bottom: 10px; }
        table { width: 100%; border-collapse: collapse; margin-bottom: 10px; }
        th { background: #326ce5; color: white; text-align: left; padding: 8px 12px; }
        td { padding: 8px 12px; border-bottom: 1px solid #e0e0e0; }
        td.num { text-align: right; font-variant-numeric: tabular-nums; }
        .mode-badge { padding: 2px 10px; border-radius: 12px; font-size: 0.85em; background: #e8f0fe; color: #1a4d8f; }
        .error { color: #c5221f; }
        .profile { color: #666; font-size: 0.9em; }
        .footer { text-align: center; padding: 20px; color: #888; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Job Sizing Report</h1>
            <p><strong>Source:</strong> {{.Source}}</p>
            <p><strong>Generated:</strong> {{.GeneratedAt.Format "January 2, 2006 15:04:05 MST"}}</p>
        </div>

        <div class="summary">
            <div class="summary-card">
                <h3>Allocations</h3>
                <div class="value">{{len .Results}}</div>
            </div>
            <div class="summary-card">
                <h3>Failed</h3>
                <div class="value">{{.FailedCount}}</div>
            </div>
            {{if gt .TotalWasteCost 0.0}}
            <div class="summary-card">
                <h3>Estimated Waste Cost</h3>
                <div class="value">{{printf "%.4f" .TotalWasteCost}} {{.Currency}}</div>
            </div>
            {{end}}
        </div>

        {{range .Groups}}
        <div class="section">
            <h2>{{.Category}} &mdash; {{.Resource}}</h2>
            <table>
                <thead>
                    <tr>
                        <th>Mode</th>
                        <th>Allocation</th>
                        <th>Throughput</th>
                        <th>Waste %</th>
                        <th>Retries</th>
                    </tr>
                </thead>
                <tbody>
                    {{range .Results}}
                    <tr>
                        <td><span class="mode-badge mode-{{.Mode | lower}}">{{.Mode}}</span></td>
                        {{if .OK}}
                        <td class="num">{{.Allocation}} {{.Resource.Unit}}</td>
                        <td class="num">{{printf "%.2f" .RelativeThroughput}}</td>
                        <td class="num">{{printf "%.2f" .WastePercentage}}</td>
                        <td class="num">{{.Retries}}/{{.Count}}</td>
                        {{else}}
                        <td class="error" colspan="4">{{.Error}}</td>
                        {{end}}
                    </tr>
                    {{end}}
                </tbody>
            </table>
            {{with .Profile}}
            <p class="profile">{{.Pattern}} usage (CV {{printf "%.2f" .Variation}}): average {{printf "%.1f" .Average}}, P95 {{printf "%.1f" .P95}}, peak {{printf "%.1f" .Peak}}</p>
            {{end}}
        </div>
        {{end}}

        <div class="footer">
            <p>Generated by <strong>job-sizer</strong></p>
        </div>
    </div>
</body>
</html>
`

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"lower": func(s interface{}) string {
		return strings.ToLower(fmt.Sprintf("%v", s))
	},
}).Parse(htmlTemplate))

// GenerateHTML creates an HTML report
func GenerateHTML(report *Report, writer io.Writer) error {
	if err := reportTemplate.Execute(writer, report); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}
