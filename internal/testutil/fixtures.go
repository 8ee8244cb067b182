package testutil

import (
	"fmt"
	"strings"
)

// LyncNamespace is the default namespace carried by real SDN records.
const LyncNamespace = "http://schemas.microsoft.com/2009/07/Lync"

// SDN returns a single-line LyncDiagnostics record. Empty arguments leave
// the corresponding element out.
func SDN(callID, confID, ts string) string {
	var b strings.Builder
	b.WriteString(`<LyncDiagnostics xmlns="` + LyncNamespace + `" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	b.WriteString("<ConnectionInfo>")
	if callID != "" {
		fmt.Fprintf(&b, "<CallId>%s</CallId>", callID)
	}
	if confID != "" {
		fmt.Fprintf(&b, "<ConferenceId>%s</ConferenceId>", confID)
	}
	if ts != "" {
		fmt.Fprintf(&b, "<TimeStamp>%s</TimeStamp>", ts)
	}
	b.WriteString("</ConnectionInfo></LyncDiagnostics>")
	return b.String()
}

// SQLQuery returns a SqlQueryMessage record with the query in CDATA.
func SQLQuery(query, ts string) string {
	return fmt.Sprintf("<SqlQueryMessage><TimeStamp>%s</TimeStamp><Query><![CDATA[%s]]></Query></SqlQueryMessage>", ts, query)
}

// Scenario returns an SfbReplay document with the given configuration
// element body and message records.
func Scenario(config string, messages ...string) string {
	return `<SfbReplay xmlns="urn:sfbtools:replay">` +
		"<ReplayConfiguration>" + config + "</ReplayConfiguration>" +
		"<ReplayMessages>" + strings.Join(messages, "") + "</ReplayMessages>" +
		"</SfbReplay>"
}
