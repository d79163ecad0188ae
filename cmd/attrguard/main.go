// Package main provides the entry point for the attrguard CLI.
//
// attrguard scans batches of URLs for affiliate fraud and cookie-stuffing
// signals: hidden iframes, third-party tracking requests and affiliate
// cookies dropped without user interaction.
//
// Usage:
//
//	attrguard scan <url>...
//	attrguard scan --urls-json '["https://example.com"]'
//	attrguard serve
//
// See --help for all available options.
package main

func main() {
	Execute()
}
