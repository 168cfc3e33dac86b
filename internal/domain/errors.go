package domain

import "errors"

var (
	// ErrDocumentNotFound is returned by document stores when a key holds no document.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrSessionNotFound is returned when a quiz attempt has not been started or has expired.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionFinished is returned when acting on an attempt that already completed.
	ErrSessionFinished = errors.New("quiz session already finished")
	// ErrSessionNotFinished is returned when saving an attempt that is still in progress.
	ErrSessionNotFinished = errors.New("quiz session not finished")
	// ErrAlreadySelected is returned when an option was already chosen for the current question.
	ErrAlreadySelected = errors.New("option already selected")
	// ErrNoSelection is returned when confirming without a selected option.
	ErrNoSelection = errors.New("no option selected")
	// ErrOptionOutOfRange indicates a selected option index outside the current question.
	ErrOptionOutOfRange = errors.New("option out of range")
	// ErrEmptyQuiz indicates a session was started with no questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrNoGeneratedQuiz is returned when an attempt asks for a generated quiz and none is cached.
	ErrNoGeneratedQuiz = errors.New("no generated quiz yet")
	// ErrUnknownQuizSource indicates an attempt source other than generated or sample.
	ErrUnknownQuizSource = errors.New("unknown quiz source")
	// ErrAlreadySaved is returned when a finished attempt's score was already saved.
	ErrAlreadySaved = errors.New("score already saved for this attempt")

	// ErrEmptyNote is returned when a note has no text.
	ErrEmptyNote = errors.New("empty note: write or paste something first")
	// ErrNoteNotFound indicates the note ID is unknown.
	ErrNoteNotFound = errors.New("note not found")
	// ErrNoNotes is returned when generation is requested with nothing staged.
	ErrNoNotes = errors.New("add some notes first")
	// ErrNotEnoughContent is returned when notes are too short to build a demo quiz.
	ErrNotEnoughContent = errors.New("not enough content to make demo questions, add longer notes")
	// ErrGenerationFailed wraps a failed call to the quiz generator.
	ErrGenerationFailed = errors.New("failed to contact quiz generator")

	// ErrInvalidScope indicates a leaderboard scope other than local or global.
	ErrInvalidScope = errors.New("invalid leaderboard scope")

	// ErrAvatarNotImage is returned when an avatar upload is not an image data URL.
	ErrAvatarNotImage = errors.New("please choose an image file")
	// ErrAvatarTooLarge is returned when an avatar upload exceeds the size cap.
	ErrAvatarTooLarge = errors.New("image too large, please pick something under 400KB")

	// ErrUnauthenticated is returned when a guarded route has no identity.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrEmailNotVerified is returned when a guarded route's identity has an unverified email.
	ErrEmailNotVerified = errors.New("please verify your email to access this page")
)
