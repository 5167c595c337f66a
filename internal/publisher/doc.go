// Package publisher turns detected track changes into state updates.
//
// A Publisher polls a Detector on a fixed interval, formats the detection as
// a "title - artist" song string, and sends it over the configured transport.
// Sends are deduplicated on the song string: an unchanged song since the last
// successful send is suppressed. Transport failures are logged and dropped;
// state is ephemeral, so the next cycle supersedes a missed update.
package publisher
