package interact

// Carousel is a looping cursor over a project gallery.
type Carousel struct {
	images []string
	index  int
}

func NewCarousel(images []string) *Carousel {
	return &Carousel{images: images}
}

func (c *Carousel) Len() int   { return len(c.images) }
func (c *Carousel) Index() int { return c.index }

// Current returns the image under the cursor, or "" for an empty gallery.
func (c *Carousel) Current() string {
	if len(c.images) == 0 {
		return ""
	}
	return c.images[c.index]
}

// Next advances the cursor, wrapping past the last image.
func (c *Carousel) Next() {
	if n := len(c.images); n > 0 {
		c.index = (c.index + 1) % n
	}
}

// Prev moves the cursor back, wrapping before the first image.
func (c *Carousel) Prev() {
	if n := len(c.images); n > 0 {
		c.index = (c.index - 1 + n) % n
	}
}

func (c *Carousel) Reset() {
	c.index = 0
}
