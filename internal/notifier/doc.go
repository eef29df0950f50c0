// Package notifier posts alerts and uploads media to the team chat.
//
// The policy engine depends on the Notifier interface only; Slack is the
// production implementation and Nop is used when no token is configured.
package notifier
