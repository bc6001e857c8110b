// Package prompt reads user input for the lockpass CLI: plain lines for
// credential fields and menu choices, and passphrases without echo.
package prompt
