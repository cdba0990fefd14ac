// Package ratelimit paces sequential image downloads.
//
// A Pacer is asked to Wait right before every download attempt. The first
// attempt goes out immediately; each later one is preceded by a pause chosen
// by a DelayStrategy:
//
//   - FixedDelay pauses for the same duration every time (--delay)
//   - RandomDelay picks a duration uniformly in [min, max] (--random-delay)
//
// Because the pause happens before an attempt rather than after it, nothing
// is slept after the last image. Waits honor context cancellation.
//
// Usage:
//
//	pacer := ratelimit.NewPacer(&ratelimit.FixedDelay{Delay: 2 * time.Second})
//	for _, link := range links {
//	    if err := pacer.Wait(ctx); err != nil {
//	        return err
//	    }
//	    download(link)
//	}
package ratelimit
