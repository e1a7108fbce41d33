package fsops

// FakeDeleter implements Deleter for testing
// Records all delete calls; Fail injects per-path errors and Next, when set,
// forwards successful calls to a real deleter
type FakeDeleter struct {
	Calls []string
	Fail  map[string]error
	Next  Deleter
}

func (f *FakeDeleter) Remove(path string) error {
	f.Calls = append(f.Calls, "rm:"+path)
	if err, ok := f.Fail[path]; ok {
		return err
	}
	if f.Next != nil {
		return f.Next.Remove(path)
	}
	return nil
}

func (f *FakeDeleter) RemoveDir(path string) error {
	f.Calls = append(f.Calls, "rmdir:"+path)
	if err, ok := f.Fail[path]; ok {
		return err
	}
	if f.Next != nil {
		return f.Next.RemoveDir(path)
	}
	return nil
}
