package lifecycle

import (
	"bytes"
	"text/template"
)

// plistTemplate is the launchd user-agent definition format. ProgramArguments
// embeds the resolved command at install time, which is why a config change
// requires a reinstall to take effect.
var plistTemplate = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>{{.Label}}</string>
	<key>ProgramArguments</key>
	<array>
{{- range .Args}}
		<string>{{.}}</string>
{{- end}}
	</array>
{{- if .RunAtLoad}}
	<key>RunAtLoad</key>
	<true/>
{{- end}}
{{- if .KeepAlive}}
	<key>KeepAlive</key>
	<true/>
{{- end}}
{{- if .LogPath}}
	<key>StandardOutPath</key>
	<string>{{.LogPath}}</string>
{{- end}}
{{- if .ErrLogPath}}
	<key>StandardErrorPath</key>
	<string>{{.ErrLogPath}}</string>
{{- end}}
</dict>
</plist>
`))

// renderPlist serializes a unit into launchd plist XML.
func renderPlist(u Unit) []byte {
	var buf bytes.Buffer
	// The template only fails on unrenderable values, which Unit cannot hold.
	_ = plistTemplate.Execute(&buf, u)
	return buf.Bytes()
}
