package sink

// RGB is one sRGB sample, components in [0,255].
type RGB struct {
	R, G, B uint8
}

// Frame is a sequence of sRGB triples, one per LED position, consumed once
// and never stored by a Sink.
type Frame []RGB
