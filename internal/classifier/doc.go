// Package classifier turns raw bus payloads into typed sensor events using the
// static action table. Classification never fails: anything it cannot map is
// reported as absent.
package classifier
