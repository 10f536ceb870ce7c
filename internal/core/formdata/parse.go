package formdata

import (
	"context"
)

// ParseOptions tunes the eager fold
type ParseOptions struct {
	// RemoveFilesFromBody keeps stored files out of the fields map
	RemoveFilesFromBody bool
}

// Result is the folded body
type Result struct {
	Fields Fields `json:"fields"`
	Files  Files  `json:"files"`
}

// Parse pulls every part from b, routes files through sink and folds both maps.
// Stored files are mirrored into Fields unless opts.RemoveFilesFromBody is set.
// When a sink fails while the bridge has a failure recorded, the bridge failure wins.
// b is closed on return
func Parse(ctx context.Context, b *Bridge, sink Sink, opts ParseOptions) (Result, error) {
	defer b.Close()

	var res Result
	for {
		p, ok, err := b.Next(ctx)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return res, nil
		}
		switch p.Kind {
		case KindField:
			res.Fields.Add(p.Name, Text(p.Value))
		case KindFile:
			f, err := sink.Save(ctx, p.Name, p.Stream, p.Info)
			if err != nil {
				if berr := b.Err(); berr != nil {
					return Result{}, berr
				}
				return Result{}, err
			}
			res.Files.Add(p.Name, f)
			if !opts.RemoveFilesFromBody {
				res.Fields.Add(p.Name, FileRef(f))
			}
		}
	}
}
