// Package telemetry turns broker messages into state updates.
//
// The pipeline for one message is:
//
//	mqtt.Client → Router → Ingestor → Resolver → state.Updater
//
// The Router rejects payloads that are not JSON, gives exact-topic
// overrides first refusal, and otherwise matches the topic against an
// ordered list of patterns, each with a single "+" segment. A match yields
// a Message tagged with its Kind. Topics that match nothing are dropped.
//
// The Resolver maps the captured segment, usually the hardware correlation
// id, to a registered device or bin. Telemetry never creates entities; an
// unknown id is logged and the message dropped.
//
// The Sweeper is an optional extension that marks devices offline after a
// period of silence. It is disabled unless telemetry.offline_after is set.
package telemetry
