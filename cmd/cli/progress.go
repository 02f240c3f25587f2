package main

import (
	"io"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/himanishpuri/AcousticIndex/pkg/acousticindex"
)

// folderProgress renders a bar for IndexFolder. The bar is created on the
// first callback since the file count is only known then.
type folderProgress struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

func newFolderProgress(w io.Writer) *folderProgress {
	return &folderProgress{p: mpb.New(mpb.WithWidth(64), mpb.WithOutput(w))}
}

func (f *folderProgress) update(fp acousticindex.FolderProgress) {
	if f.bar == nil {
		f.bar = f.p.AddBar(int64(fp.Total),
			mpb.PrependDecorators(
				decor.Name("Indexing: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.AverageETA(decor.ET_STYLE_GO),
			),
		)
	}
	f.bar.Increment()
}

// wait flushes the bar. A cancelled run leaves the bar short of its total.
func (f *folderProgress) wait() {
	if f.bar != nil && !f.bar.Completed() {
		f.bar.Abort(false)
	}
	f.p.Wait()
}
