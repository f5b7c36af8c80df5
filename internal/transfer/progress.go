package transfer

import "io"

// progressReader reports bytes-sent as a percentage of a known total as
// the HTTP transport consumes the request body. A nil callback costs
// nothing beyond the counter.
type progressReader struct {
	r        io.Reader
	name     string
	total    int64
	sent     int64
	progress ProgressFunc
}

func newProgressReader(r io.Reader, total int64, name string, progress ProgressFunc) io.Reader {
	return &progressReader{r: r, name: name, total: total, progress: progress}
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.sent += int64(n)

	if p.progress != nil && p.total > 0 && n > 0 {
		pct := float64(p.sent) * 100 / float64(p.total)
		if pct > 100 {
			pct = 100
		}

		p.progress(p.name, pct)
	}

	return n, err
}
