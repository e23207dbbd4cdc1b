package workspace

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fansqz/js-debugger/document"
	"github.com/fansqz/js-debugger/utils/gosync"
	"github.com/fansqz/js-debugger/utils/scheduler"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const debounceTimeout = 50 * time.Millisecond

// Watcher 监听打开的文档在磁盘上的变化，变化后在事件循环中执行Sync
//
// fsnotify监听的是文件所在的目录，编辑器保存文件时经常先删除再创建。
type Watcher struct {
	watcher *fsnotify.Watcher
	loop    *scheduler.Loop
	done    chan struct{}
	closed  chan struct{}

	lock      sync.Mutex
	documents map[string]*document.Document
	dirs      map[string]int
	timers    map[string]*time.Timer

	// OnSynced 文档同步之后在事件循环中调用
	OnSynced func(doc *document.Document)
}

func NewWatcher(loop *scheduler.Loop) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logrus.Errorf("[NewWatcher] create fs watcher fail, err = %v", err)
		return nil, err
	}
	w := &Watcher{
		watcher:   watcher,
		loop:      loop,
		done:      make(chan struct{}),
		closed:    make(chan struct{}),
		documents: map[string]*document.Document{},
		dirs:      map[string]int{},
		timers:    map[string]*time.Timer{},
	}
	gosync.Go(context.Background(), func(context.Context) {
		w.handleChanges()
	})
	return w, nil
}

// Watch 监听path，文件变化时同步到doc
func (w *Watcher) Watch(path string, doc *document.Document) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.lock.Lock()
	defer w.lock.Unlock()
	if _, ok := w.documents[path]; ok {
		w.documents[path] = doc
		return nil
	}
	dir := filepath.Dir(path)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			logrus.Errorf("[Watch] watch %s fail, err = %v", dir, err)
			return err
		}
	}
	w.dirs[dir]++
	w.documents[path] = doc
	logrus.Infof("[Watcher] Watch %s", path)
	return nil
}

// Unwatch 停止监听path
func (w *Watcher) Unwatch(path string) error {
	path, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.lock.Lock()
	defer w.lock.Unlock()
	if _, ok := w.documents[path]; !ok {
		return nil
	}
	delete(w.documents, path)
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
		delete(w.timers, path)
	}
	dir := filepath.Dir(path)
	w.dirs[dir]--
	if w.dirs[dir] > 0 {
		return nil
	}
	delete(w.dirs, dir)
	return w.watcher.Remove(dir)
}

// Close 停止监听，取消还没有触发的同步
func (w *Watcher) Close() error {
	select {
	case <-w.done:
		return nil
	default:
	}
	close(w.done)
	<-w.closed
	w.lock.Lock()
	for _, timer := range w.timers {
		timer.Stop()
	}
	w.timers = map[string]*time.Timer{}
	w.lock.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) handleChanges() {
	defer close(w.closed)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			w.handleDebounce(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logrus.Warnf("[Watcher] failure in file watcher, err = %v", err)
		case <-w.done:
			return
		}
	}
}

// handleDebounce 一次保存可能产生多个事件，只在最后一个事件之后读取文件
func (w *Watcher) handleDebounce(name string) {
	path := filepath.Clean(name)
	w.lock.Lock()
	defer w.lock.Unlock()
	if _, ok := w.documents[path]; !ok {
		return
	}
	if timer, ok := w.timers[path]; ok {
		timer.Stop()
	}
	w.timers[path] = time.AfterFunc(debounceTimeout, func() {
		w.lock.Lock()
		delete(w.timers, path)
		doc, ok := w.documents[path]
		w.lock.Unlock()
		if !ok {
			return
		}
		if err := w.reload(path, doc); err != nil {
			logrus.Warnf("[Watcher] reload %s fail, err = %v", path, err)
		}
	})
}

func (w *Watcher) reload(path string, doc *document.Document) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	text := string(data)
	w.loop.Post(func() {
		if err := Sync(doc, text); err != nil {
			logrus.Errorf("[Sync] %s, err = %v", path, err)
			return
		}
		if w.OnSynced != nil {
			w.OnSynced(doc)
		}
	})
	return nil
}
